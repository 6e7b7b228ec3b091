// Package main is the entry point for the arcalib camera calibration and
// augmented reality tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/arcalib/internal/backend"
	"github.com/Faultbox/arcalib/internal/calibration"
	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/internal/config"
	"github.com/Faultbox/arcalib/internal/logger"
	"github.com/Faultbox/arcalib/internal/metrics"
	"github.com/Faultbox/arcalib/internal/pipeline"
	"github.com/Faultbox/arcalib/internal/render"
	"github.com/Faultbox/arcalib/internal/session"
	"github.com/Faultbox/arcalib/pkg/formats"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var runErr error
	runMain(func() { runErr = run(cfg) })
	if err := runErr; err != nil {
		logger.Error("arcalib failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("session closed normally")
}

// runMain hosts the session. Window backends that must own the main thread
// replace it.
var runMain = func(f func()) { f() }

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := loadModel(cfg)
	if err != nil {
		return err
	}

	mesh, err := loadMesh(cfg.Model.Path)
	if err != nil {
		return err
	}

	capture, err := backend.OpenSource(cfg)
	if err != nil {
		return err
	}

	sess := session.New()
	display, err := backend.OpenDisplay(cfg, sess.Press)
	if err != nil {
		capture.Source.Close()
		return err
	}

	m := metrics.New()
	p := pipeline.New(pipeline.Options{
		Pattern:         calibration.Pattern{Columns: cfg.Target.Columns, Rows: cfg.Target.Rows},
		SquareSize:      cfg.Target.SquareSize,
		MinSamples:      cfg.Calibration.MinSamples,
		CalibrationFile: cfg.Calibration.File,
		Mesh:            mesh,
		Model:           model,
	}, pipeline.Deps{
		Source:    capture.Source,
		Detector:  capture.Detector,
		Features:  capture.Features,
		Display:   display,
		Geometry:  capture.Geometry,
		Session:   sess,
		Snapshots: render.NewSnapshotter(cfg.Snapshot.Dir, cfg.Snapshot.Prefix, cfg.Snapshot.Format),
		Metrics:   m,
	})
	defer capture.Source.Close()

	logger.With(zap.String("session_id", p.ID().String()))
	logger.Info("=== arcalib ===",
		zap.String("source", cfg.Source.Driver),
		zap.String("display", cfg.Display.Driver),
		zap.Stringer("pattern", calibration.Pattern{Columns: cfg.Target.Columns, Rows: cfg.Target.Rows}),
		zap.String("mesh", cfg.Model.Path))
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
				logger.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Calibration.Watch {
		w, err := calibration.NewWatcher(cfg.Calibration.File, p.SetModel)
		if err != nil {
			logger.Warn("calibration watch disabled", zap.Error(err))
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Warn("calibration watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	return p.Run(ctx, os.Stdin)
}

// loadModel reads the calibration file. The session cannot run without
// intrinsics, so any failure is fatal; `arctl calib init` writes a nominal
// file for a first session.
func loadModel(cfg *config.Config) (camera.Model, error) {
	model, err := calibration.LoadModel(cfg.Calibration.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return camera.Model{}, fmt.Errorf("loading calibration: %w (run `arctl calib init %s` to create one)",
				err, cfg.Calibration.File)
		}
		return camera.Model{}, fmt.Errorf("loading calibration: %w", err)
	}
	logger.Info("calibration loaded",
		zap.String("file", cfg.Calibration.File),
		zap.Stringer("camera_matrix", model.Intrinsics))
	return model, nil
}

// loadMesh loads and validates the object overlay mesh. No path means the
// object overlay draws nothing.
func loadMesh(path string) (*formats.Mesh, error) {
	if path == "" {
		logger.Warn("no model path configured, object overlay disabled")
		return nil, nil
	}
	mesh, err := formats.LoadOBJ(path)
	if err != nil {
		return nil, fmt.Errorf("loading mesh: %w", err)
	}
	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("loading mesh %s: %w", path, err)
	}
	logger.Info("mesh loaded",
		zap.String("file", path),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("faces", len(mesh.Faces)))
	return mesh, nil
}
