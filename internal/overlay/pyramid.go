package overlay

import (
	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// Pyramid sizing.
const (
	InitialHalfWidth = 0.5
	InitialHeight    = 0.5
	ShrinkFactor     = 0.75
)

// Pyramid is a square-based pyramid standing on the board plane.
type Pyramid struct {
	Center    geom.Vec3
	HalfWidth float64
	Height    float64
}

// NewPyramid centers a pyramid on a board of the given inner-corner size.
// The center and the initial dimensions are scaled by square, the board's
// square size in target units; square <= 0 counts as 1.
func NewPyramid(columns, rows int, square float64) Pyramid {
	if square <= 0 {
		square = 1
	}
	return Pyramid{
		Center: geom.Vec3{
			X: (float64(columns)/2 - 0.5) * square,
			Y: -(float64(rows)/2 - 0.5) * square,
		},
		HalfWidth: InitialHalfWidth * square,
		Height:    InitialHeight * square,
	}
}

// Points returns the four base corners counter-clockwise from bottom left,
// then the apex.
func (p Pyramid) Points() []geom.Vec3 {
	c, s := p.Center, p.HalfWidth
	return []geom.Vec3{
		{X: c.X - s, Y: c.Y - s, Z: c.Z},
		{X: c.X + s, Y: c.Y - s, Z: c.Z},
		{X: c.X + s, Y: c.Y + s, Z: c.Z},
		{X: c.X - s, Y: c.Y + s, Z: c.Z},
		{X: c.X, Y: c.Y, Z: c.Z + p.Height},
	}
}

// Scaled returns p with both dimensions multiplied by f, center unchanged.
func (p Pyramid) Scaled(f float64) Pyramid {
	p.HalfWidth *= f
	p.Height *= f
	return p
}

// Fit is the outcome of FitPyramid.
type Fit struct {
	Pyramid Pyramid
	Points  []geom.Vec2
	Shrunk  bool
}

// FitPyramid projects pyr and, if any projected point falls outside the
// boundary, shrinks it once by ShrinkFactor and projects again. The second
// projection is used whether or not it fits.
func FitPyramid(proj Projector, pose camera.Pose, model camera.Model, boundary Quad, pyr Pyramid) Fit {
	pts := proj.ProjectPoints(pyr.Points(), pose, model)
	for _, p := range pts {
		if !InsideQuad(p, boundary) {
			pyr = pyr.Scaled(ShrinkFactor)
			return Fit{
				Pyramid: pyr,
				Points:  proj.ProjectPoints(pyr.Points(), pose, model),
				Shrunk:  true,
			}
		}
	}
	return Fit{Pyramid: pyr, Points: pts}
}

// DrawPyramid draws base and apex edges in green, then strokes the base
// again in heavier red.
func DrawPyramid(c Canvas, pts []geom.Vec2) {
	if len(pts) < 5 {
		return
	}
	for i := 0; i < 4; i++ {
		c.Line(pts[i], pts[(i+1)%4], Green, 5)
		c.Line(pts[i], pts[4], Green, 5)
	}
	for i := 0; i < 4; i++ {
		c.Line(pts[i], pts[(i+1)%4], Red, 10)
	}
}

// AxesLength is the drawn length of each axis in squares.
const AxesLength = 3

// AxesPoints returns the origin and the X, Y and Z axis tips for a board
// with the given square size. Z points out of the board towards the camera.
func AxesPoints(square float64) []geom.Vec3 {
	if square <= 0 {
		square = 1
	}
	l := AxesLength * square
	return []geom.Vec3{
		{},
		{X: l},
		{Y: l},
		{Z: -l},
	}
}

// DrawAxes projects and draws X red, Y green, Z blue.
func DrawAxes(c Canvas, proj Projector, pose camera.Pose, model camera.Model, square float64) {
	pts := proj.ProjectPoints(AxesPoints(square), pose, model)
	c.Line(pts[0], pts[1], Red, 3)
	c.Line(pts[0], pts[2], Green, 3)
	c.Line(pts[0], pts[3], Blue, 3)
}
