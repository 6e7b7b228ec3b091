package camera

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/Faultbox/arcalib/pkg/geom"
)

// minimize runs Nelder-Mead from x0. It reports false when the optimizer
// found nothing better than x0.
func minimize(f func([]float64) float64, x0 []float64, evaluations int) ([]float64, bool) {
	f0 := f(x0)
	if evaluations <= 0 || !isFinite(f0) {
		return x0, false
	}

	problem := optimize.Problem{Func: f}
	settings := &optimize.Settings{
		FuncEvaluations: evaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil || (err != nil && result.Status != optimize.FunctionEvaluationLimit) {
		return x0, false
	}
	if !isFinite(result.F) || result.F >= f0 {
		return x0, false
	}
	return result.X, true
}

// refineModel polishes intrinsics and distortion with the poses held fixed.
// Parameters are scaled by the initial focal length so the simplex steps
// are comparable across dimensions.
func (p *Pinhole) refineModel(m Model, obj [][]geom.Vec3, img [][]geom.Vec2, poses []Pose) Model {
	f0 := m.Intrinsics.Fx()
	if f0 == 0 {
		return m
	}
	unpack := func(x []float64) Model {
		return Model{
			Intrinsics: NewIntrinsics(x[0]*f0, x[1]*f0, x[2]*f0, x[3]*f0),
			Distortion: Distortion{x[4], x[5], x[6], x[7], x[8]},
		}
	}
	k, d := m.Intrinsics, m.Distortion
	x0 := []float64{k.Fx() / f0, k.Fy() / f0, k.Cx() / f0, k.Cy() / f0, d[0], d[1], d[2], d[3], d[4]}

	cost := func(x []float64) float64 {
		return sumSquaredError(unpack(x), obj, img, poses)
	}
	x, ok := minimize(cost, x0, p.RefineEvaluations)
	if !ok {
		return m
	}
	return unpack(x)
}

// refinePose polishes a pose by minimizing pixel reprojection error over
// the rotation vector and translation.
func (p *Pinhole) refinePose(m Model, obj []geom.Vec3, img []geom.Vec2, pose Pose) Pose {
	r := pose.RotationVector()
	t := pose.Translation
	x0 := []float64{r.X, r.Y, r.Z, t.X, t.Y, t.Z}

	unpack := func(x []float64) Pose {
		return PoseFromVectors(geom.Vec3{X: x[0], Y: x[1], Z: x[2]}, geom.Vec3{X: x[3], Y: x[4], Z: x[5]})
	}
	cost := func(x []float64) float64 {
		var sum float64
		q := unpack(x)
		for i, o := range obj {
			d := m.ProjectPoint(o, q).Sub(img[i])
			sum += d.Dot(d)
		}
		return sum
	}
	x, ok := minimize(cost, x0, p.PoseEvaluations)
	if !ok {
		return pose
	}
	return unpack(x)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
