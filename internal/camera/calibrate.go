package camera

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/arcalib/pkg/geom"
)

// MinViews is the smallest number of board views Calibrate accepts.
const MinViews = 3

// Calibrate estimates intrinsics, distortion and the RMS reprojection error
// from several views of a planar target (all object points with z = 0).
//
// The closed-form solution follows Zhang: one homography per view, the
// image of the absolute conic from the stacked constraints (zero skew
// enforced), extrinsics from the homographies and a linear estimate of the
// radial terms. The result is then polished with Nelder-Mead.
func (p *Pinhole) Calibrate(objectSets [][]geom.Vec3, imageSets [][]geom.Vec2, imageSize image.Point) (Calibration, error) {
	if len(objectSets) != len(imageSets) {
		return Calibration{}, fmt.Errorf("%w: %d object sets, %d image sets", ErrPointMismatch, len(objectSets), len(imageSets))
	}
	if len(objectSets) < MinViews {
		return Calibration{}, fmt.Errorf("%w: need %d, got %d", ErrTooFewViews, MinViews, len(objectSets))
	}
	for v := range objectSets {
		if len(objectSets[v]) != len(imageSets[v]) {
			return Calibration{}, fmt.Errorf("view %d: %w", v, ErrPointMismatch)
		}
		if err := checkPlanar(objectSets[v]); err != nil {
			return Calibration{}, fmt.Errorf("view %d: %w", v, err)
		}
	}

	// Condition pixel coordinates around the image center.
	norm := imageConditioner(imageSize, imageSets)
	normInv, _ := norm.Inverse()

	homographies := make([]geom.Mat3, len(objectSets))
	for v := range objectSets {
		src := planarXY(objectSets[v])
		dst := make([]geom.Vec2, len(imageSets[v]))
		for i, px := range imageSets[v] {
			dst[i] = applyHomography(norm, px)
		}
		h, err := findHomography(src, dst)
		if err != nil {
			return Calibration{}, fmt.Errorf("view %d: %w", v, err)
		}
		homographies[v] = h
	}

	kNorm, err := intrinsicsFromHomographies(homographies)
	if err != nil {
		return Calibration{}, err
	}
	k := Intrinsics(normInv.Mul(kNorm.Matrix()))

	kInv, ok := kNorm.Matrix().Inverse()
	if !ok {
		return Calibration{}, fmt.Errorf("%w: singular camera matrix", ErrDegenerate)
	}
	poses := make([]Pose, len(homographies))
	for v, h := range homographies {
		pose, err := poseFromHomography(h, kInv)
		if err != nil {
			return Calibration{}, fmt.Errorf("view %d: %w", v, err)
		}
		poses[v] = pose
	}

	model := Model{Intrinsics: k}
	model.Distortion = estimateRadial(model, objectSets, imageSets, poses)

	if p.RefineEvaluations > 0 {
		model = p.refineModel(model, objectSets, imageSets, poses)
		for v := range poses {
			poses[v] = p.refinePose(model, objectSets[v], imageSets[v], poses[v])
		}
	}

	rms := rmsError(model, objectSets, imageSets, poses)
	if math.IsNaN(rms) || math.IsInf(rms, 0) {
		return Calibration{}, fmt.Errorf("%w: non-finite reprojection error", ErrDegenerate)
	}

	return Calibration{
		Intrinsics:        model.Intrinsics,
		Distortion:        model.Distortion,
		ReprojectionError: rms,
	}, nil
}

// imageConditioner maps pixels to roughly [-1, 1] around the image center.
func imageConditioner(size image.Point, imageSets [][]geom.Vec2) geom.Mat3 {
	cx, cy := float64(size.X)/2, float64(size.Y)/2
	s := math.Max(cx, cy)
	if s <= 0 {
		// No frame size; fall back to the spread of the observations.
		var c geom.Vec2
		n := 0
		for _, view := range imageSets {
			for _, p := range view {
				c = c.Add(p)
				n++
			}
		}
		c = c.Scale(1 / float64(n))
		for _, view := range imageSets {
			for _, p := range view {
				s = math.Max(s, p.Distance(c))
			}
		}
		cx, cy = c.X, c.Y
		if s <= 0 {
			s = 1
		}
	}
	return geom.Mat3{
		1 / s, 0, -cx / s,
		0, 1 / s, -cy / s,
		0, 0, 1,
	}
}

// intrinsicsFromHomographies solves V*b = 0 for the image of the absolute
// conic B = K^-T K^-1 and reads K off it.
func intrinsicsFromHomographies(hs []geom.Mat3) (Intrinsics, error) {
	v := mat.NewDense(2*len(hs)+1, 6, nil)
	for i, h := range hs {
		v12 := conicRow(h, 0, 1)
		v11 := conicRow(h, 0, 0)
		v22 := conicRow(h, 1, 1)
		var diff [6]float64
		for j := range diff {
			diff[j] = v11[j] - v22[j]
		}
		v.SetRow(2*i, v12[:])
		v.SetRow(2*i+1, diff[:])
	}
	// Zero skew: B12 = 0.
	v.SetRow(2*len(hs), []float64{0, 1, 0, 0, 0, 0})

	b, err := nullVector(v)
	if err != nil {
		return Intrinsics{}, err
	}
	if b[0] < 0 {
		for i := range b {
			b[i] = -b[i]
		}
	}
	b11, b12, b22, b13, b23, b33 := b[0], b[1], b[2], b[3], b[4], b[5]

	den := b11*b22 - b12*b12
	if b11 <= 0 || den <= 0 {
		return Intrinsics{}, fmt.Errorf("%w: views do not constrain the camera (try tilting the board)", ErrDegenerate)
	}
	v0 := (b12*b13 - b11*b23) / den
	lambda := b33 - (b13*b13+v0*(b12*b13-b11*b23))/b11
	if lambda/b11 <= 0 {
		return Intrinsics{}, fmt.Errorf("%w: conic is not positive definite", ErrDegenerate)
	}
	alpha := math.Sqrt(lambda / b11)
	beta := math.Sqrt(lambda * b11 / den)
	u0 := -b13 * alpha * alpha / lambda

	return NewIntrinsics(alpha, beta, u0, v0), nil
}

// conicRow is v_ij from Zhang's paper for homography columns i and j.
func conicRow(h geom.Mat3, i, j int) [6]float64 {
	hi, hj := h.Col(i), h.Col(j)
	return [6]float64{
		hi.X * hj.X,
		hi.X*hj.Y + hi.Y*hj.X,
		hi.Y * hj.Y,
		hi.Z*hj.X + hi.X*hj.Z,
		hi.Z*hj.Y + hi.Y*hj.Z,
		hi.Z * hj.Z,
	}
}

// estimateRadial fits k1 and k2 by linear least squares against the ideal
// pinhole projections.
func estimateRadial(m Model, obj [][]geom.Vec3, img [][]geom.Vec2, poses []Pose) Distortion {
	n := countPoints(img)
	a := mat.NewDense(2*n, 2, nil)
	b := mat.NewVecDense(2*n, nil)

	k := m.Intrinsics
	row := 0
	for v := range obj {
		for i, p := range obj[v] {
			c := poses[v].Transform(p)
			x, y := c.X/c.Z, c.Y/c.Z
			r2 := x*x + y*y
			ideal := k.toPixel(geom.Vec2{X: x, Y: y})
			du, dv := ideal.X-k.Cx(), ideal.Y-k.Cy()

			a.SetRow(row, []float64{du * r2, du * r2 * r2})
			b.SetVec(row, img[v][i].X-ideal.X)
			a.SetRow(row+1, []float64{dv * r2, dv * r2 * r2})
			b.SetVec(row+1, img[v][i].Y-ideal.Y)
			row += 2
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return Distortion{}
	}
	k1, k2 := x.AtVec(0), x.AtVec(1)
	if math.IsNaN(k1) || math.IsNaN(k2) || math.IsInf(k1, 0) || math.IsInf(k2, 0) {
		return Distortion{}
	}
	return Distortion{k1, k2, 0, 0, 0}
}

func checkPlanar(obj []geom.Vec3) error {
	for _, p := range obj {
		if math.Abs(p.Z) > 1e-9 {
			return ErrNotPlanar
		}
	}
	return nil
}

func planarXY(obj []geom.Vec3) []geom.Vec2 {
	out := make([]geom.Vec2, len(obj))
	for i, p := range obj {
		out[i] = p.XY()
	}
	return out
}

func sqrtMean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
