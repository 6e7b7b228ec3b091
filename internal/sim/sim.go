// Package sim is a synthetic camera. It renders a chessboard moving in front
// of a known camera model and, acting as the detector, reports the exact
// projected inner corners of the frame it last produced.
package sim

import (
	"context"
	"image"
	"image/color"
	"io"
	"math"
	"sync"
	"time"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/internal/render"
	"github.com/Faultbox/arcalib/pkg/geom"
)

var (
	background = color.RGBA{R: 90, G: 96, B: 104, A: 255}
	paper      = color.RGBA{R: 245, G: 245, B: 240, A: 255}
	ink        = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

// Config describes the simulated rig.
type Config struct {
	Width, Height int
	FPS           int // 0 renders as fast as frames are read
	Frames        int // 0 never ends
	Columns, Rows int // inner corners
	SquareSize    float64
	Model         camera.Model // zero value uses a 1.25x-width focal length
}

// Camera is both a frame source and a chessboard detector.
type Camera struct {
	cfg   Config
	model camera.Model

	mu      sync.Mutex
	frame   int
	last    *image.RGBA
	corners []geom.Vec2
	visible bool

	tick *time.Ticker
}

// New creates a synthetic camera.
func New(cfg Config) *Camera {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	if cfg.Columns <= 0 || cfg.Rows <= 0 {
		cfg.Columns, cfg.Rows = 9, 6
	}
	if cfg.SquareSize <= 0 {
		cfg.SquareSize = 1
	}
	model := cfg.Model
	if model.Intrinsics == (camera.Intrinsics{}) {
		f := 1.25 * float64(cfg.Width)
		model.Intrinsics = camera.NewIntrinsics(f, f, float64(cfg.Width)/2, float64(cfg.Height)/2)
	}

	c := &Camera{cfg: cfg, model: model}
	if cfg.FPS > 0 {
		c.tick = time.NewTicker(time.Second / time.Duration(cfg.FPS))
	}
	return c
}

// Model returns the ground-truth camera model.
func (c *Camera) Model() camera.Model {
	return c.model
}

// Size returns the frame size.
func (c *Camera) Size() image.Point {
	return image.Pt(c.cfg.Width, c.cfg.Height)
}

// PoseAt returns the board pose used for frame n. The board sways and tilts
// around a point in front of the camera.
func (c *Camera) PoseAt(n int) camera.Pose {
	t := float64(n) / 15
	s := c.cfg.SquareSize
	rvec := geom.Vec3{
		X: 0.35 * math.Sin(t),
		Y: 0.3 * math.Cos(0.7*t),
		Z: 0.12 * math.Sin(0.3*t),
	}
	r := geom.Rodrigues(rvec)
	center := geom.Vec3{
		X: float64(c.cfg.Columns-1) / 2 * s,
		Y: -float64(c.cfg.Rows-1) / 2 * s,
	}
	dist := (16 + 2*math.Sin(0.5*t)) * s
	return camera.Pose{Rotation: r, Translation: geom.Vec3{Z: dist}.Sub(r.MulVec(center))}
}

// Read renders the next frame. It returns io.EOF after Frames frames.
func (c *Camera) Read(ctx context.Context) (*image.RGBA, error) {
	if c.tick != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.tick.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Frames > 0 && c.frame >= c.cfg.Frames {
		return nil, io.EOF
	}

	pose := c.PoseAt(c.frame)
	img := image.NewRGBA(image.Rect(0, 0, c.cfg.Width, c.cfg.Height))
	c.draw(render.NewRaster(img), pose)

	c.corners = c.model.ProjectPoints(c.innerCorners(), pose)
	c.visible = c.inFrame(c.corners)
	c.last = img
	c.frame++
	return img, nil
}

// FindCorners reports the inner corners of img when it is the most recent
// frame and the whole board is in view.
func (c *Camera) FindCorners(img image.Image, columns, rows int) ([]geom.Vec2, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba != c.last || !c.visible {
		return nil, false
	}
	if columns != c.cfg.Columns || rows != c.cfg.Rows {
		return nil, false
	}
	return append([]geom.Vec2(nil), c.corners...), true
}

// Close stops frame pacing.
func (c *Camera) Close() error {
	if c.tick != nil {
		c.tick.Stop()
	}
	return nil
}

func (c *Camera) innerCorners() []geom.Vec3 {
	s := c.cfg.SquareSize
	pts := make([]geom.Vec3, 0, c.cfg.Columns*c.cfg.Rows)
	for i := 0; i < c.cfg.Rows; i++ {
		for j := 0; j < c.cfg.Columns; j++ {
			pts = append(pts, geom.Vec3{X: float64(j) * s, Y: -float64(i) * s})
		}
	}
	return pts
}

func (c *Camera) inFrame(pts []geom.Vec2) bool {
	for _, p := range pts {
		if !p.IsFinite() || p.X < 0 || p.Y < 0 || p.X >= float64(c.cfg.Width) || p.Y >= float64(c.cfg.Height) {
			return false
		}
	}
	return true
}

// draw paints the board: a paper margin one square wide, then the
// (columns+1) x (rows+1) squares with the top-left one dark.
func (c *Camera) draw(r *render.Raster, pose camera.Pose) {
	r.Fill(background)
	s := c.cfg.SquareSize
	cols, rows := c.cfg.Columns, c.cfg.Rows

	quad := func(x0, y0, x1, y1 float64) []geom.Vec2 {
		return c.model.ProjectPoints([]geom.Vec3{
			{X: x0 * s, Y: -y0 * s},
			{X: x1 * s, Y: -y0 * s},
			{X: x1 * s, Y: -y1 * s},
			{X: x0 * s, Y: -y1 * s},
		}, pose)
	}

	r.Polygon(quad(-2, -2, float64(cols)+1, float64(rows)+1), paper)
	for i := -1; i < rows; i++ {
		for j := -1; j < cols; j++ {
			if (i+j)%2 != 0 {
				continue
			}
			r.Polygon(quad(float64(j), float64(i), float64(j+1), float64(i+1)), ink)
		}
	}
}
