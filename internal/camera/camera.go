// Package camera implements the pinhole camera geometry used by the AR
// session: point projection with Brown-Conrady distortion, planar pose
// solving and Zhang-style intrinsic calibration from chessboard views.
package camera

import (
	"errors"
	"fmt"

	"github.com/Faultbox/arcalib/pkg/geom"
)

// Camera geometry errors.
var (
	ErrTooFewViews   = errors.New("not enough calibration views")
	ErrTooFewPoints  = errors.New("not enough points")
	ErrPointMismatch = errors.New("object and image point counts differ")
	ErrNotPlanar     = errors.New("object points are not planar (z must be 0)")
	ErrDegenerate    = errors.New("degenerate configuration")
)

// Intrinsics is the 3x3 camera matrix
//
//	[fx  s cx]
//	[ 0 fy cy]
//	[ 0  0  1]
type Intrinsics geom.Mat3

// NewIntrinsics builds a zero-skew camera matrix.
func NewIntrinsics(fx, fy, cx, cy float64) Intrinsics {
	return Intrinsics{
		fx, 0, cx,
		0, fy, cy,
		0, 0, 1,
	}
}

// NominalIntrinsics guesses a camera matrix for an uncalibrated camera:
// focal length equal to the image width, principal point at the center.
func NominalIntrinsics(width, height int) Intrinsics {
	f := float64(width)
	return NewIntrinsics(f, f, float64(width)/2, float64(height)/2)
}

func (k Intrinsics) Fx() float64   { return k[0] }
func (k Intrinsics) Fy() float64   { return k[4] }
func (k Intrinsics) Cx() float64   { return k[2] }
func (k Intrinsics) Cy() float64   { return k[5] }
func (k Intrinsics) Skew() float64 { return k[1] }

// Matrix returns the camera matrix as a geom.Mat3.
func (k Intrinsics) Matrix() geom.Mat3 {
	return geom.Mat3(k)
}

// String formats the matrix the way it is logged.
func (k Intrinsics) String() string {
	return fmt.Sprintf("[%g, %g, %g; %g, %g, %g; %g, %g, %g]",
		k[0], k[1], k[2], k[3], k[4], k[5], k[6], k[7], k[8])
}

// Model is a calibrated camera: intrinsics plus lens distortion.
type Model struct {
	Intrinsics Intrinsics
	Distortion Distortion
}

// Calibration is the outcome of an intrinsic calibration.
type Calibration struct {
	Intrinsics        Intrinsics
	Distortion        Distortion
	ReprojectionError float64 // RMS pixel error over all views
}

// Model returns the camera model part of the calibration.
func (c Calibration) Model() Model {
	return Model{Intrinsics: c.Intrinsics, Distortion: c.Distortion}
}

// Pose maps target-space points into camera space: Xc = R*Xt + t.
type Pose struct {
	Rotation    geom.Mat3
	Translation geom.Vec3
}

// Transform maps a target-space point into camera space.
func (p Pose) Transform(v geom.Vec3) geom.Vec3 {
	return p.Rotation.MulVec(v).Add(p.Translation)
}

// RotationVector returns the rotation in axis-angle form.
func (p Pose) RotationVector() geom.Vec3 {
	return p.Rotation.RotationVector()
}

// PoseFromVectors builds a pose from an axis-angle rotation and translation.
func PoseFromVectors(rvec, tvec geom.Vec3) Pose {
	return Pose{Rotation: geom.Rodrigues(rvec), Translation: tvec}
}
