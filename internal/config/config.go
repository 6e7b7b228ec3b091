// Package config handles application configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all session settings.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Target      TargetConfig      `yaml:"target"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Model       ModelConfig       `yaml:"model"`
	Display     DisplayConfig     `yaml:"display"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SourceConfig selects and sizes the frame source.
type SourceConfig struct {
	Driver string `yaml:"driver"` // sim or gocv
	Device int    `yaml:"device"` // capture device index for gocv
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// TargetConfig describes the chessboard.
type TargetConfig struct {
	Columns    int     `yaml:"columns"` // inner corners per row
	Rows       int     `yaml:"rows"`    // inner corners per column
	SquareSize float64 `yaml:"square_size"`
}

// CalibrationConfig holds calibration persistence settings.
type CalibrationConfig struct {
	File       string `yaml:"file"`
	MinSamples int    `yaml:"min_samples"`
	Watch      bool   `yaml:"watch"` // reload the file when it changes on disk
}

// ModelConfig points at the mesh drawn by the object overlay.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// DisplayConfig selects the window backend.
type DisplayConfig struct {
	Driver string `yaml:"driver"` // none, sdl or gocv
	Title  string `yaml:"title"`
}

// SnapshotConfig holds settings for saved frames.
type SnapshotConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
	Format string `yaml:"format"` // png or bmp
}

// MetricsConfig holds the Prometheus listener address; empty disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Driver: "sim",
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Target: TargetConfig{
			Columns:    9,
			Rows:       6,
			SquareSize: 1,
		},
		Calibration: CalibrationConfig{
			File:       "calibration.txt",
			MinSamples: 5,
		},
		Display: DisplayConfig{
			Driver: "none",
			Title:  "arcalib",
		},
		Snapshot: SnapshotConfig{
			Dir:    "snapshots",
			Prefix: "frame",
			Format: "png",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks values that would otherwise fail deep inside the session.
func (c *Config) Validate() error {
	switch {
	case c.Target.Columns < 2 || c.Target.Rows < 2:
		return fmt.Errorf("%w: target must have at least 2x2 inner corners, got %dx%d", ErrInvalid, c.Target.Columns, c.Target.Rows)
	case c.Target.SquareSize <= 0:
		return fmt.Errorf("%w: target.square_size must be positive", ErrInvalid)
	case c.Source.Width <= 0 || c.Source.Height <= 0:
		return fmt.Errorf("%w: source size must be positive, got %dx%d", ErrInvalid, c.Source.Width, c.Source.Height)
	case c.Source.FPS < 0:
		return fmt.Errorf("%w: source.fps must not be negative", ErrInvalid)
	case c.Calibration.MinSamples < 5:
		return fmt.Errorf("%w: calibration.min_samples must be at least 5", ErrInvalid)
	}
	return nil
}
