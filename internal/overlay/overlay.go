// Package overlay decides what pose-anchored geometry to draw on a frame and
// draws it: coordinate axes, a pyramid kept inside the detected board, a
// loaded mesh, and feature markers.
package overlay

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// Filled as a thickness fills a circle instead of stroking it.
const Filled = -1

// Canvas is the drawing surface overlays render onto.
type Canvas interface {
	Line(a, b geom.Vec2, c color.RGBA, thickness float64)
	Circle(center geom.Vec2, radius float64, c color.RGBA, thickness float64)
}

// Projector maps target-space points into the image.
type Projector interface {
	ProjectPoints(obj []geom.Vec3, pose camera.Pose, model camera.Model) []geom.Vec2
}

// Colors used by the overlays.
var (
	Red   = color.RGBA{R: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
	Blue  = color.RGBA{B: 255, A: 255}
	Black = color.RGBA{A: 255}
)

// ErrShortCorners is returned when the corner list does not cover the pattern.
var ErrShortCorners = errors.New("corner list shorter than pattern")

// Quad is an ordered convex quadrilateral in image coordinates.
type Quad [4]geom.Vec2

// containmentTolerance is the area mismatch below which a point counts as
// inside.
const containmentTolerance = 1e-3

// InsideQuad reports whether p lies inside q by comparing the area of q with
// the summed areas of the four triangles each edge forms with p. Points on or
// near an edge may be classified either way but always the same way for the
// same input.
func InsideQuad(p geom.Vec2, q Quad) bool {
	whole := geom.ContourArea(q[:])
	var parts float64
	for i := 0; i < 4; i++ {
		parts += geom.ContourArea([]geom.Vec2{q[i], q[(i+1)%4], p})
	}
	diff := whole - parts
	if diff < 0 {
		diff = -diff
	}
	return diff < containmentTolerance
}

// BoardBoundary returns the four extreme corners of a detected board in
// perimeter order: first, end of first row, last, start of last row.
func BoardBoundary(corners []geom.Vec2, columns, rows int) (Quad, error) {
	n := columns * rows
	if columns < 1 || rows < 1 || len(corners) < n {
		return Quad{}, fmt.Errorf("%w: have %d, need %d", ErrShortCorners, len(corners), n)
	}
	return Quad{
		corners[0],
		corners[columns-1],
		corners[n-1],
		corners[columns*(rows-1)],
	}, nil
}
