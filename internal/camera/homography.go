package camera

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/arcalib/pkg/geom"
)

// findHomography estimates H such that dst ~ H * src using the normalized
// direct linear transform.
func findHomography(src, dst []geom.Vec2) (geom.Mat3, error) {
	if len(src) != len(dst) {
		return geom.Mat3{}, ErrPointMismatch
	}
	if len(src) < 4 {
		return geom.Mat3{}, fmt.Errorf("%w: homography needs 4, got %d", ErrTooFewPoints, len(src))
	}

	tSrc, ok := normalizingTransform(src)
	if !ok {
		return geom.Mat3{}, fmt.Errorf("%w: source points coincide", ErrDegenerate)
	}
	tDst, ok := normalizingTransform(dst)
	if !ok {
		return geom.Mat3{}, fmt.Errorf("%w: destination points coincide", ErrDegenerate)
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range src {
		s := applyHomography(tSrc, src[i])
		d := applyHomography(tDst, dst[i])
		a.SetRow(2*i, []float64{-s.X, -s.Y, -1, 0, 0, 0, d.X * s.X, d.X * s.Y, d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, -s.X, -s.Y, -1, d.Y * s.X, d.Y * s.Y, d.Y})
	}

	h, err := nullVector(a)
	if err != nil {
		return geom.Mat3{}, err
	}

	var hn geom.Mat3
	copy(hn[:], h)

	tDstInv, ok := tDst.Inverse()
	if !ok {
		return geom.Mat3{}, ErrDegenerate
	}
	H := tDstInv.Mul(hn).Mul(tSrc)
	if H[8] != 0 {
		s := 1 / H[8]
		for i := range H {
			H[i] *= s
		}
	}
	return H, nil
}

// normalizingTransform returns the similarity that moves the centroid of pts
// to the origin and scales their mean distance to sqrt(2).
func normalizingTransform(pts []geom.Vec2) (geom.Mat3, bool) {
	var c geom.Vec2
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Scale(1 / float64(len(pts)))

	var mean float64
	for _, p := range pts {
		mean += p.Distance(c)
	}
	mean /= float64(len(pts))
	if mean < 1e-12 {
		return geom.Mat3{}, false
	}

	s := math.Sqrt2 / mean
	return geom.Mat3{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	}, true
}

func applyHomography(h geom.Mat3, p geom.Vec2) geom.Vec2 {
	v := h.MulVec(geom.Vec3{X: p.X, Y: p.Y, Z: 1})
	return geom.Vec2{X: v.X / v.Z, Y: v.Y / v.Z}
}

// nullVector returns the right singular vector of a for its smallest
// singular value.
func nullVector(a *mat.Dense) ([]float64, error) {
	kind := mat.SVDThin
	if r, c := a.Dims(); r < c {
		kind = mat.SVDFull
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, kind); !ok {
		return nil, fmt.Errorf("%w: SVD did not converge", ErrDegenerate)
	}
	var v mat.Dense
	svd.VTo(&v)
	_, c := v.Dims()
	return mat.Col(nil, c-1, &v), nil
}

// nearestRotation projects m onto SO(3) in the Frobenius sense.
func nearestRotation(m geom.Mat3) (geom.Mat3, error) {
	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(3, 3, m[:]), mat.SVDFull); !ok {
		return geom.Mat3{}, fmt.Errorf("%w: SVD did not converge", ErrDegenerate)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		// Flip the axis of the smallest singular value.
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}

	var out geom.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = r.At(i, j)
		}
	}
	return out, nil
}

// poseFromHomography recovers R and t from a plane-to-image homography h
// expressed for a camera with intrinsic matrix kInv^-1.
func poseFromHomography(h geom.Mat3, kInv geom.Mat3) (Pose, error) {
	a1 := kInv.MulVec(h.Col(0))
	a2 := kInv.MulVec(h.Col(1))
	a3 := kInv.MulVec(h.Col(2))

	norm := (a1.Length() + a2.Length()) / 2
	if norm < 1e-12 {
		return Pose{}, fmt.Errorf("%w: zero homography columns", ErrDegenerate)
	}
	lambda := 1 / norm

	r1 := a1.Scale(lambda)
	r2 := a2.Scale(lambda)
	t := a3.Scale(lambda)
	if t.Z < 0 {
		// The board must be in front of the camera.
		r1, r2, t = r1.Scale(-1), r2.Scale(-1), t.Scale(-1)
	}
	r3 := r1.Cross(r2)

	rot, err := nearestRotation(geom.FromCols(r1, r2, r3))
	if err != nil {
		return Pose{}, err
	}
	return Pose{Rotation: rot, Translation: t}, nil
}
