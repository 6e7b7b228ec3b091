// Calibration data layout. The writer mirrors how OpenCV prints a cv::Mat, so
// files produced by older OpenCV tooling read back unchanged.
package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Section markers.
const (
	CameraMatrixMarker      = "Camera Matrix:"
	DistortionMarker        = "Distortion Coefficients:"
	ReprojectionErrorMarker = "Re-Projection Error:"
)

// DistortionReadCount is how many distortion coefficients are read back.
const DistortionReadCount = 5

// ErrMalformedCalibration is returned when a section is missing or short.
var ErrMalformedCalibration = errors.New("malformed calibration data")

// CalibrationData is the content of a calibration file.
type CalibrationData struct {
	CameraMatrix      [9]float64 // Row-major 3x3 intrinsic matrix
	Distortion        []float64  // k1 k2 p1 p2 k3 [...]
	ReprojectionError float64    // Written only; not parsed back
}

// WriteCalibration writes data in the labeled three-section layout.
func WriteCalibration(w io.Writer, data CalibrationData) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, CameraMatrixMarker)
	for r := 0; r < 3; r++ {
		open, end := " ", ";"
		if r == 0 {
			open = "["
		}
		if r == 2 {
			end = "]"
		}
		fmt.Fprintf(bw, "%s%s, %s, %s%s\n", open,
			formatFloat(data.CameraMatrix[r*3]),
			formatFloat(data.CameraMatrix[r*3+1]),
			formatFloat(data.CameraMatrix[r*3+2]),
			end)
	}

	fmt.Fprintln(bw, DistortionMarker)
	for i, d := range data.Distortion {
		open, end := " ", ";"
		if i == 0 {
			open = "["
		}
		if i == len(data.Distortion)-1 {
			end = "]"
		}
		fmt.Fprintf(bw, "%s%s%s\n", open, formatFloat(d), end)
	}

	fmt.Fprintf(bw, "%s %s\n", ReprojectionErrorMarker, formatFloat(data.ReprojectionError))
	return bw.Flush()
}

// SaveCalibration writes data to path, replacing any existing file.
func SaveCalibration(path string, data CalibrationData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating calibration file: %w", err)
	}
	if err := WriteCalibration(f, data); err != nil {
		f.Close()
		return fmt.Errorf("writing calibration file: %w", err)
	}
	return f.Close()
}

// ReadCalibration parses the camera matrix and the first five distortion
// coefficients. Numbers are located by scanning each line for float
// literals, so brackets, separators and extra whitespace are irrelevant.
func ReadCalibration(r io.Reader) (CalibrationData, error) {
	var data CalibrationData
	var haveMatrix, haveDistortion bool

	scanner := bufio.NewScanner(r)
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	for {
		line, ok := next()
		if !ok {
			break
		}

		switch {
		case strings.Contains(line, CameraMatrixMarker):
			for row := 0; row < 3; row++ {
				text, ok := next()
				if !ok {
					return data, fmt.Errorf("%w: camera matrix row %d missing", ErrMalformedCalibration, row)
				}
				vals := ScanFloats(text, 3)
				if len(vals) < 3 {
					return data, fmt.Errorf("%w: camera matrix row %d has %d values", ErrMalformedCalibration, row, len(vals))
				}
				copy(data.CameraMatrix[row*3:], vals)
			}
			haveMatrix = true

		case strings.Contains(line, DistortionMarker):
			data.Distortion = make([]float64, DistortionReadCount)
			for i := 0; i < DistortionReadCount; i++ {
				text, ok := next()
				if !ok {
					return data, fmt.Errorf("%w: distortion coefficient %d missing", ErrMalformedCalibration, i)
				}
				vals := ScanFloats(text, 1)
				if len(vals) == 0 {
					return data, fmt.Errorf("%w: distortion line %d has no value", ErrMalformedCalibration, i)
				}
				data.Distortion[i] = vals[0]
			}
			haveDistortion = true
		}
	}
	if err := scanner.Err(); err != nil {
		return data, fmt.Errorf("reading calibration: %w", err)
	}

	if !haveMatrix {
		return data, fmt.Errorf("%w: no %q section", ErrMalformedCalibration, CameraMatrixMarker)
	}
	if !haveDistortion {
		return data, fmt.Errorf("%w: no %q section", ErrMalformedCalibration, DistortionMarker)
	}
	return data, nil
}

// LoadCalibration reads a calibration file from disk.
func LoadCalibration(path string) (CalibrationData, error) {
	f, err := os.Open(path)
	if err != nil {
		return CalibrationData{}, fmt.Errorf("opening calibration file: %w", err)
	}
	defer f.Close()
	return ReadCalibration(f)
}

// ScanFloats returns up to max float literals found left to right in s.
// A literal is [-+]?digits[.digits][(e|E)[-+]?digits] or [-+]?.digits[...].
// Pass max <= 0 to collect all of them.
func ScanFloats(s string, max int) []float64 {
	var out []float64
	i := 0
	for i < len(s) && (max <= 0 || len(out) < max) {
		end := floatLiteralEnd(s, i)
		if end <= i {
			i++
			continue
		}
		v, err := strconv.ParseFloat(s[i:end], 64)
		if err == nil {
			out = append(out, v)
		}
		i = end
	}
	return out
}

// floatLiteralEnd returns the end of a float literal starting at i, or i if
// there is none.
func floatLiteralEnd(s string, i int) int {
	j := i
	if j < len(s) && (s[j] == '-' || s[j] == '+') {
		j++
	}
	intStart := j
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	hasInt := j > intStart

	hasFrac := false
	if j < len(s) && s[j] == '.' {
		k := j + 1
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		// A bare trailing dot ("3.") is left out of the literal.
		if k > j+1 {
			hasFrac = true
			j = k
		}
	}
	if !hasInt && !hasFrac {
		return i
	}

	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '-' || s[k] == '+') {
			k++
		}
		expStart := k
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > expStart {
			j = k
		}
	}
	return j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
