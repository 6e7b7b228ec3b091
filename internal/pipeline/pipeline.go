// Package pipeline runs the per-frame augmented reality loop: detect the
// board, solve its pose, draw the enabled overlays, act on the pending key
// and show the result.
package pipeline

import (
	"context"
	"image"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// Source produces frames. Read returns io.EOF when the stream ends.
type Source interface {
	Read(ctx context.Context) (*image.RGBA, error)
	Close() error
}

// Detector finds the inner corners of a columns x rows chessboard, in
// row-major order.
type Detector interface {
	FindCorners(img image.Image, columns, rows int) ([]geom.Vec2, bool)
}

// FeatureDetector finds interest points to mark on the frame.
type FeatureDetector interface {
	Detect(img image.Image) []geom.Vec2
}

// Display shows annotated frames.
type Display interface {
	Show(img *image.RGBA) error
	Close() error
}

// Geometry is the camera geometry the pipeline relies on.
type Geometry interface {
	ProjectPoints(obj []geom.Vec3, pose camera.Pose, model camera.Model) []geom.Vec2
	SolvePose(obj []geom.Vec3, img []geom.Vec2, model camera.Model) (camera.Pose, bool)
	Calibrate(objectSets [][]geom.Vec3, imageSets [][]geom.Vec2, imageSize image.Point) (camera.Calibration, error)
}

// NopDisplay discards frames.
type NopDisplay struct{}

func (NopDisplay) Show(*image.RGBA) error { return nil }
func (NopDisplay) Close() error           { return nil }
