// OBJ (Wavefront) mesh parser. Only geometry records are read: v, vt, vn and f.
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

// OBJ format errors.
var (
	ErrMalformedOBJ        = errors.New("malformed OBJ data")
	ErrFaceIndexOutOfRange = errors.New("face vertex index out of range")
)

// ParseError reports the line of an OBJ file that failed to parse.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Vertex is a geometric vertex in object space.
type Vertex struct {
	X, Y, Z float64
}

// TexCoord is a texture coordinate. Loaded but not used for rendering.
type TexCoord struct {
	U, V float64
}

// Normal is a vertex normal. Loaded but not used for rendering.
type Normal struct {
	X, Y, Z float64
}

// Face lists 1-based indices for each corner. TexCoordIndices and
// NormalIndices only contain the sub-indices that were present, so they may
// be shorter than VertexIndices.
type Face struct {
	VertexIndices   []int
	TexCoordIndices []int
	NormalIndices   []int
}

// Mesh is a loaded OBJ model.
type Mesh struct {
	Vertices  []Vertex
	TexCoords []TexCoord
	Normals   []Normal
	Faces     []Face
}

// Validate checks that every face vertex index refers to a loaded vertex.
func (m *Mesh) Validate() error {
	for fi, f := range m.Faces {
		for _, idx := range f.VertexIndices {
			if idx < 1 || idx > len(m.Vertices) {
				return fmt.Errorf("face %d references vertex %d of %d: %w",
					fi+1, idx, len(m.Vertices), ErrFaceIndexOutOfRange)
			}
		}
	}
	return nil
}

// LoadOBJ reads and parses an OBJ file from disk.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mesh: %w", err)
	}
	defer f.Close()

	mesh, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return mesh, nil
}

// ParseOBJ parses OBJ records from r. A malformed number anywhere fails the
// whole parse; no partial mesh is returned.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	mesh := &Mesh{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "v":
			var p [3]float64
			if p, err = parseFloats3(fields[1:]); err == nil {
				mesh.Vertices = append(mesh.Vertices, Vertex{p[0], p[1], p[2]})
			}
		case "vt":
			var p [2]float64
			if p, err = parseFloats2(fields[1:]); err == nil {
				mesh.TexCoords = append(mesh.TexCoords, TexCoord{p[0], p[1]})
			}
		case "vn":
			var p [3]float64
			if p, err = parseFloats3(fields[1:]); err == nil {
				mesh.Normals = append(mesh.Normals, Normal{p[0], p[1], p[2]})
			}
		case "f":
			var face Face
			if face, err = parseFace(fields[1:]); err == nil {
				mesh.Faces = append(mesh.Faces, face)
			}
		}
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: text, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	return mesh, nil
}

func parseFloats3(fields []string) ([3]float64, error) {
	var out [3]float64
	if len(fields) < 3 {
		return out, fmt.Errorf("%w: expected 3 values, got %d", ErrMalformedOBJ, len(fields))
	}
	for i := range out {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedOBJ, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats2(fields []string) ([2]float64, error) {
	var out [2]float64
	if len(fields) < 2 {
		return out, fmt.Errorf("%w: expected 2 values, got %d", ErrMalformedOBJ, len(fields))
	}
	for i := range out {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrMalformedOBJ, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseFace reads corner tokens of the form v, v/t, v//n or v/t/n.
func parseFace(tokens []string) (Face, error) {
	var face Face
	if len(tokens) == 0 {
		return face, fmt.Errorf("%w: face without corners", ErrMalformedOBJ)
	}

	for _, tok := range tokens {
		parts := strings.SplitN(tok, "/", 3)

		v, err := strconv.Atoi(parts[0])
		if err != nil {
			return face, fmt.Errorf("%w: vertex index %q", ErrMalformedOBJ, parts[0])
		}
		face.VertexIndices = append(face.VertexIndices, v)

		if len(parts) > 1 && parts[1] != "" {
			t, err := strconv.Atoi(parts[1])
			if err != nil {
				return face, fmt.Errorf("%w: texture index %q", ErrMalformedOBJ, parts[1])
			}
			face.TexCoordIndices = append(face.TexCoordIndices, t)
		}
		if len(parts) > 2 && parts[2] != "" {
			n, err := strconv.Atoi(parts[2])
			if err != nil {
				return face, fmt.Errorf("%w: normal index %q", ErrMalformedOBJ, parts[2])
			}
			face.NormalIndices = append(face.NormalIndices, n)
		}
	}

	return face, nil
}
