package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/arcalib/internal/calibration"
	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/internal/logger"
	"github.com/Faultbox/arcalib/internal/metrics"
	"github.com/Faultbox/arcalib/internal/overlay"
	"github.com/Faultbox/arcalib/internal/render"
	"github.com/Faultbox/arcalib/internal/session"
	"github.com/Faultbox/arcalib/pkg/formats"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// Options configures a Pipeline.
type Options struct {
	Pattern         calibration.Pattern
	SquareSize      float64
	MinSamples      int
	CalibrationFile string // where calibrations are persisted; empty skips persisting
	Mesh            *formats.Mesh
	Model           camera.Model
}

// Pipeline owns the frame loop and everything it touches. Only Run's frame
// goroutine calls ProcessFrame; SetModel may be called from anywhere.
type Pipeline struct {
	id       uuid.UUID
	opts     Options
	source   Source
	detector Detector
	features FeatureDetector
	display  Display
	geometry Geometry

	session   *session.Session
	store     *calibration.Store
	snapshots *render.Snapshotter
	metrics   *metrics.Metrics
	model     atomic.Pointer[camera.Model]

	board   []geom.Vec3
	pyramid overlay.Pyramid

	// Per-frame state.
	frame           *image.RGBA
	raster          *render.Raster
	found           bool
	corners         []geom.Vec2
	pose            camera.Pose
	poseOK          bool
	foundPreviously bool
	snapshotPending bool
}

// Deps are the collaborators a Pipeline is built from. Features, Display,
// Snapshots and Metrics are optional.
type Deps struct {
	Source    Source
	Detector  Detector
	Features  FeatureDetector
	Display   Display
	Geometry  Geometry
	Session   *session.Session
	Snapshots *render.Snapshotter
	Metrics   *metrics.Metrics
}

// New builds a pipeline.
func New(opts Options, deps Deps) *Pipeline {
	if opts.SquareSize <= 0 {
		opts.SquareSize = 1
	}
	if deps.Display == nil {
		deps.Display = NopDisplay{}
	}
	if deps.Session == nil {
		deps.Session = session.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	p := &Pipeline{
		id:        uuid.New(),
		opts:      opts,
		source:    deps.Source,
		detector:  deps.Detector,
		features:  deps.Features,
		display:   deps.Display,
		geometry:  deps.Geometry,
		session:   deps.Session,
		store:     calibration.NewStore(deps.Geometry, opts.MinSamples),
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		board:     calibration.BoardPoints(opts.Pattern, opts.SquareSize),
		pyramid:   overlay.NewPyramid(opts.Pattern.Columns, opts.Pattern.Rows, opts.SquareSize),
	}
	model := opts.Model
	p.model.Store(&model)
	return p
}

// ID identifies this run in logs and metrics.
func (p *Pipeline) ID() uuid.UUID { return p.id }

// Session returns the shared key and mode state.
func (p *Pipeline) Session() *session.Session { return p.session }

// Store returns the calibration sample store.
func (p *Pipeline) Store() *calibration.Store { return p.store }

// Model returns the camera model currently in use.
func (p *Pipeline) Model() camera.Model { return *p.model.Load() }

// SetModel replaces the camera model used from the next frame on.
func (p *Pipeline) SetModel(m camera.Model) {
	p.model.Store(&m)
}

// Run starts the key reader and the frame loop and waits for both. The
// frame loop ends on the quit command, on source EOF or when ctx is done.
// After EOF the key reader keeps running until it reads quit.
func (p *Pipeline) Run(ctx context.Context, keys io.Reader) error {
	logger.Info("session started", zap.String("session_id", p.id.String()), zap.Stringer("pattern", p.opts.Pattern))
	logger.Info(session.Help)

	quit := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		done := make(chan error, 1)
		// ReadKeys blocks in Read; if the frame loop quits first this
		// goroutine stays parked until the reader returns.
		go func() { done <- p.session.ReadKeys(keys) }()
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("reading keys: %w", err)
			}
			return nil
		case <-quit:
			return nil
		case <-ctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		quitRequested, err := p.frameLoop(ctx)
		if quitRequested {
			close(quit)
		}
		return err
	})

	err := g.Wait()
	if cerr := p.display.Close(); cerr != nil {
		logger.Warn("closing display", zap.Error(cerr))
	}
	logger.Info("session ended",
		zap.Uint64("frames", p.metrics.FramesRead.Load()),
		zap.Int("samples", p.store.Len()))
	return err
}

func (p *Pipeline) frameLoop(ctx context.Context) (quit bool, err error) {
	for {
		img, err := p.source.Read(ctx)
		switch {
		case errors.Is(err, io.EOF):
			logger.Info("frame source ended; press q to exit")
			return false, nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return false, nil
		case err != nil:
			p.metrics.ReadErrors.Add(1)
			return false, fmt.Errorf("reading frame: %w", err)
		}

		if p.ProcessFrame(img) {
			logger.Info("quit requested")
			return true, nil
		}
	}
}

// ProcessFrame runs one iteration of the loop on img and reports whether
// the quit command was consumed.
func (p *Pipeline) ProcessFrame(img *image.RGBA) (quit bool) {
	start := time.Now()
	p.metrics.FramesRead.Add(1)
	model := p.Model()

	p.frame = img
	p.raster = render.NewRaster(img)
	p.detect(model)

	if p.found && p.poseOK && p.session.ShowAxes() {
		overlay.DrawAxes(p.raster, p.geometry, p.pose, model, p.opts.SquareSize)
	}

	if p.found && p.poseOK && p.session.ShowObject() && p.opts.Mesh != nil {
		projected := overlay.ProjectMesh(p.geometry, p.opts.Mesh, p.pose, model)
		if skipped := overlay.DrawMesh(p.raster, p.opts.Mesh, projected); skipped > 0 {
			p.metrics.MeshFacesSkipped.Add(uint64(skipped))
		}
	}

	quit = p.session.Dispatch(p.session.Take(), p)

	if p.found && p.poseOK && p.session.ShowPersistent() {
		p.drawPyramid(model)
	}

	if p.features != nil && p.session.ShowFeatures() {
		overlay.DrawFeatures(p.raster, p.features.Detect(img))
	}

	if p.snapshotPending {
		p.snapshotPending = false
		p.saveSnapshot()
	}

	if err := p.display.Show(img); err != nil {
		logger.Warn("display failed", zap.Error(err))
	}

	p.metrics.UpdateFrameLatency(time.Since(start))
	return quit
}

func (p *Pipeline) detect(model camera.Model) {
	p.corners, p.found = p.detector.FindCorners(p.frame, p.opts.Pattern.Columns, p.opts.Pattern.Rows)
	if !p.found {
		p.foundPreviously = false
		return
	}
	p.metrics.FramesDetected.Add(1)

	if pose, ok := p.geometry.SolvePose(p.board, p.corners, model); ok {
		p.pose, p.poseOK = pose, true
		p.metrics.PosesSolved.Add(1)
	} else {
		p.poseOK = false
	}

	if !p.foundPreviously && len(p.corners) > 0 {
		logger.Info("chessboard detected",
			zap.Int("corners", len(p.corners)),
			zap.Float64("first_x", p.corners[0].X),
			zap.Float64("first_y", p.corners[0].Y))
	}
	p.foundPreviously = true
}

func (p *Pipeline) drawPyramid(model camera.Model) {
	boundary, err := overlay.BoardBoundary(p.corners, p.opts.Pattern.Columns, p.opts.Pattern.Rows)
	if err != nil {
		logger.Debug("no board boundary", zap.Error(err))
		return
	}
	fit := overlay.FitPyramid(p.geometry, p.pose, model, boundary, p.pyramid)
	if fit.Shrunk {
		p.metrics.PyramidShrinks.Add(1)
	}
	overlay.DrawPyramid(p.raster, fit.Points)
}

func (p *Pipeline) saveSnapshot() {
	if p.snapshots == nil {
		logger.Warn("snapshots are disabled")
		return
	}
	name, err := p.snapshots.Save(p.frame)
	if err != nil {
		logger.Error("saving snapshot", zap.Error(err))
		return
	}
	p.metrics.Snapshots.Add(1)
	logger.Info("snapshot saved", zap.String("file", name))
}
