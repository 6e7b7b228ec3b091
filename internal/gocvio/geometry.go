//go:build gocv

package gocvio

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// ErrCalibrationFailed is returned when OpenCV produces no camera matrix.
var ErrCalibrationFailed = errors.New("opencv calibration failed")

// Geometry calibrates and solves poses with OpenCV calib3d. Projection uses
// the camera model directly; it is the same pinhole plus k1 k2 p1 p2 k3
// model OpenCV projects with.
type Geometry struct{}

// ProjectPoints implements pipeline.Geometry.
func (Geometry) ProjectPoints(obj []geom.Vec3, pose camera.Pose, model camera.Model) []geom.Vec2 {
	return model.ProjectPoints(obj, pose)
}

// SolvePose runs cv::solvePnP (iterative) on one view.
func (Geometry) SolvePose(obj []geom.Vec3, img []geom.Vec2, model camera.Model) (camera.Pose, bool) {
	if len(obj) < 4 || len(obj) != len(img) {
		return camera.Pose{}, false
	}
	objVec := gocv.NewPoint3fVectorFromPoints(points3f(obj))
	defer objVec.Close()
	imgVec := gocv.NewPoint2fVectorFromPoints(points2f(img))
	defer imgVec.Close()

	k := intrinsicsMat(model.Intrinsics)
	defer k.Close()
	d := distortionMat(model.Distortion)
	defer d.Close()

	rvec, tvec := gocv.NewMat(), gocv.NewMat()
	defer rvec.Close()
	defer tvec.Close()
	if !gocv.SolvePnP(objVec, imgVec, k, d, &rvec, &tvec, false, 0) {
		return camera.Pose{}, false
	}
	return camera.PoseFromVectors(vec3At(rvec), vec3At(tvec)), true
}

// Calibrate runs cv::calibrateCamera over all views.
func (Geometry) Calibrate(objectSets [][]geom.Vec3, imageSets [][]geom.Vec2, imageSize image.Point) (camera.Calibration, error) {
	if len(objectSets) != len(imageSets) {
		return camera.Calibration{}, fmt.Errorf("%d object sets for %d image sets", len(objectSets), len(imageSets))
	}
	objVecs := gocv.NewPoints3fVector()
	defer objVecs.Close()
	imgVecs := gocv.NewPoints2fVector()
	defer imgVecs.Close()
	for i := range objectSets {
		o := gocv.NewPoint3fVectorFromPoints(points3f(objectSets[i]))
		objVecs.Append(o)
		o.Close()
		p := gocv.NewPoint2fVectorFromPoints(points2f(imageSets[i]))
		imgVecs.Append(p)
		p.Close()
	}

	k, d := gocv.NewMat(), gocv.NewMat()
	defer k.Close()
	defer d.Close()
	rvecs, tvecs := gocv.NewMat(), gocv.NewMat()
	defer rvecs.Close()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objVecs, imgVecs, imageSize, &k, &d, &rvecs, &tvecs, 0)
	if k.Empty() || k.Rows() != 3 || k.Cols() != 3 {
		return camera.Calibration{}, ErrCalibrationFailed
	}

	var result camera.Calibration
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			result.Intrinsics[r*3+c] = k.GetDoubleAt(r, c)
		}
	}
	for i := 0; i < len(result.Distortion) && i < int(d.Total()); i++ {
		result.Distortion[i] = d.GetDoubleAt(0, i)
	}
	result.ReprojectionError = rms
	return result, nil
}

func intrinsicsMat(k camera.Intrinsics) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, k[r*3+c])
		}
	}
	return m
}

func distortionMat(d camera.Distortion) gocv.Mat {
	m := gocv.NewMatWithSize(1, len(d), gocv.MatTypeCV64F)
	for i, v := range d {
		m.SetDoubleAt(0, i, v)
	}
	return m
}

// vec3At reads a 3x1 CV_64F vector.
func vec3At(m gocv.Mat) geom.Vec3 {
	return geom.Vec3{X: m.GetDoubleAt(0, 0), Y: m.GetDoubleAt(1, 0), Z: m.GetDoubleAt(2, 0)}
}

func points3f(pts []geom.Vec3) []gocv.Point3f {
	out := make([]gocv.Point3f, len(pts))
	for i, p := range pts {
		out[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	}
	return out
}

func points2f(pts []geom.Vec2) []gocv.Point2f {
	out := make([]gocv.Point2f, len(pts))
	for i, p := range pts {
		out[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	return out
}
