package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/bmp"
)

// Snapshot formats.
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// Snapshotter writes annotated frames to numbered, timestamped files.
type Snapshotter struct {
	outputDir string
	prefix    string
	format    string

	mu      sync.Mutex
	counter int
	now     func() time.Time
}

// NewSnapshotter creates a snapshot writer. An unknown format falls back to
// PNG.
func NewSnapshotter(outputDir, prefix, format string) *Snapshotter {
	format = strings.ToLower(format)
	if format != FormatBMP {
		format = FormatPNG
	}
	if prefix == "" {
		prefix = "frame"
	}
	return &Snapshotter{
		outputDir: outputDir,
		prefix:    prefix,
		format:    format,
		now:       time.Now,
	}
}

// Count returns how many snapshots have been written.
func (s *Snapshotter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Save encodes img and returns the file name written.
func (s *Snapshotter) Save(img image.Image) (string, error) {
	if s.outputDir != "" {
		if err := os.MkdirAll(s.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()

	filename := s.filename(n)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := s.encode(file, img); err != nil {
		return "", fmt.Errorf("encoding %s: %w", s.format, err)
	}
	return filename, nil
}

func (s *Snapshotter) encode(w io.Writer, img image.Image) error {
	if s.format == FormatBMP {
		return bmp.Encode(w, img)
	}
	return png.Encode(w, img)
}

func (s *Snapshotter) filename(n int) string {
	timestamp := s.now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("%s_%03d_%s.%s", s.prefix, n, timestamp, s.format)
	if s.outputDir != "" {
		name = filepath.Join(s.outputDir, name)
	}
	return name
}
