// Package backend maps configured driver names to frame sources, detectors
// and displays. Optional drivers register themselves from build-tagged
// packages.
package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/internal/config"
	"github.com/Faultbox/arcalib/internal/features"
	"github.com/Faultbox/arcalib/internal/pipeline"
	"github.com/Faultbox/arcalib/internal/sim"
)

// ErrUnknownDriver is returned for a driver name nothing registered.
var ErrUnknownDriver = errors.New("unknown driver")

// Capture bundles what a source driver provides. Features and Geometry
// default to the pure-Go Harris detector and pinhole camera.
type Capture struct {
	Source   pipeline.Source
	Detector pipeline.Detector
	Features pipeline.FeatureDetector
	Geometry pipeline.Geometry
}

// SourceFactory opens a capture from the configuration.
type SourceFactory func(cfg *config.Config) (*Capture, error)

// DisplayFactory opens a display. press forwards keys typed into the window.
type DisplayFactory func(cfg *config.Config, press func(rune)) (pipeline.Display, error)

var (
	mu       sync.RWMutex
	sources  = map[string]SourceFactory{}
	displays = map[string]DisplayFactory{}
)

// RegisterSource makes a source driver available by name.
func RegisterSource(name string, f SourceFactory) {
	mu.Lock()
	defer mu.Unlock()
	sources[name] = f
}

// RegisterDisplay makes a display driver available by name.
func RegisterDisplay(name string, f DisplayFactory) {
	mu.Lock()
	defer mu.Unlock()
	displays[name] = f
}

// OpenSource opens the configured source driver.
func OpenSource(cfg *config.Config) (*Capture, error) {
	mu.RLock()
	f, ok := sources[cfg.Source.Driver]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: source %q (available: %v)", ErrUnknownDriver, cfg.Source.Driver, SourceDrivers())
	}
	c, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s source: %w", cfg.Source.Driver, err)
	}
	if c.Features == nil {
		c.Features = features.NewHarris()
	}
	if c.Geometry == nil {
		c.Geometry = camera.NewPinhole()
	}
	return c, nil
}

// OpenDisplay opens the configured display driver.
func OpenDisplay(cfg *config.Config, press func(rune)) (pipeline.Display, error) {
	mu.RLock()
	f, ok := displays[cfg.Display.Driver]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: display %q (available: %v)", ErrUnknownDriver, cfg.Display.Driver, DisplayDrivers())
	}
	d, err := f(cfg, press)
	if err != nil {
		return nil, fmt.Errorf("opening %s display: %w", cfg.Display.Driver, err)
	}
	return d, nil
}

// SourceDrivers lists registered source drivers.
func SourceDrivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(sources)
}

// DisplayDrivers lists registered display drivers.
func DisplayDrivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(displays)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	RegisterSource("sim", func(cfg *config.Config) (*Capture, error) {
		cam := sim.New(sim.Config{
			Width:      cfg.Source.Width,
			Height:     cfg.Source.Height,
			FPS:        cfg.Source.FPS,
			Columns:    cfg.Target.Columns,
			Rows:       cfg.Target.Rows,
			SquareSize: cfg.Target.SquareSize,
		})
		return &Capture{Source: cam, Detector: cam}, nil
	})
	RegisterDisplay("none", func(*config.Config, func(rune)) (pipeline.Display, error) {
		return pipeline.NopDisplay{}, nil
	})
}
