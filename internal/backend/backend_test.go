package backend

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/internal/config"
	"github.com/Faultbox/arcalib/internal/pipeline"
)

func TestBuiltinDrivers(t *testing.T) {
	if !contains(SourceDrivers(), "sim") {
		t.Errorf("sim source not registered: %v", SourceDrivers())
	}
	if !contains(DisplayDrivers(), "none") {
		t.Errorf("none display not registered: %v", DisplayDrivers())
	}
}

func TestOpenSim(t *testing.T) {
	cfg := config.Default()
	cfg.Source.FPS = 0
	c, err := OpenSource(cfg)
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer c.Source.Close()

	if c.Features == nil {
		t.Error("no default feature detector")
	}
	if _, ok := c.Geometry.(*camera.Pinhole); !ok {
		t.Errorf("default geometry = %T, want *camera.Pinhole", c.Geometry)
	}
	img, err := c.Source.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if img.Bounds().Size() != image.Pt(640, 480) {
		t.Errorf("frame size %v", img.Bounds().Size())
	}
	if _, ok := c.Detector.FindCorners(img, 9, 6); !ok {
		t.Error("sim detector did not find the board")
	}
}

func TestUnknownDrivers(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Driver = "v4l-magic"
	if _, err := OpenSource(cfg); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}

	cfg.Display.Driver = "hologram"
	if _, err := OpenDisplay(cfg, func(rune) {}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestRegisterDisplayReceivesPress(t *testing.T) {
	var pressed rune
	RegisterDisplay("test-press", func(_ *config.Config, press func(rune)) (pipeline.Display, error) {
		press('q')
		return pipeline.NopDisplay{}, nil
	})
	cfg := config.Default()
	cfg.Display.Driver = "test-press"
	if _, err := OpenDisplay(cfg, func(r rune) { pressed = r }); err != nil {
		t.Fatalf("OpenDisplay: %v", err)
	}
	if pressed != 'q' {
		t.Errorf("pressed = %q, want q", pressed)
	}
}

func TestFactoryErrorWrapped(t *testing.T) {
	boom := errors.New("no camera")
	RegisterSource("test-broken", func(*config.Config) (*Capture, error) { return nil, boom })
	cfg := config.Default()
	cfg.Source.Driver = "test-broken"
	if _, err := OpenSource(cfg); !errors.Is(err, boom) {
		t.Errorf("expected wrapped factory error, got %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
