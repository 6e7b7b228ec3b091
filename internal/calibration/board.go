package calibration

import (
	"fmt"
	"image"

	"github.com/Faultbox/arcalib/pkg/geom"
)

// Pattern is the inner-corner grid of a chessboard: Columns corners per row,
// Rows rows.
type Pattern struct {
	Columns int
	Rows    int
}

// Size returns the pattern as an image.Point (columns, rows).
func (p Pattern) Size() image.Point {
	return image.Pt(p.Columns, p.Rows)
}

// Corners returns the number of inner corners.
func (p Pattern) Corners() int {
	return p.Columns * p.Rows
}

func (p Pattern) String() string {
	return fmt.Sprintf("%dx%d", p.Columns, p.Rows)
}

// BoardPoints returns the target-space corner positions in detection order:
// row by row, x to the right and y decreasing down the board, z = 0.
func BoardPoints(p Pattern, squareSize float64) []geom.Vec3 {
	pts := make([]geom.Vec3, 0, p.Corners())
	for i := 0; i < p.Rows; i++ {
		for j := 0; j < p.Columns; j++ {
			pts = append(pts, geom.Vec3{X: float64(j) * squareSize, Y: -float64(i) * squareSize})
		}
	}
	return pts
}
