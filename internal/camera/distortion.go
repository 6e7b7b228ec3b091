package camera

import "github.com/Faultbox/arcalib/pkg/geom"

// Distortion holds Brown-Conrady coefficients in OpenCV order:
// k1, k2, p1, p2, k3.
type Distortion [5]float64

func (d Distortion) K1() float64 { return d[0] }
func (d Distortion) K2() float64 { return d[1] }
func (d Distortion) P1() float64 { return d[2] }
func (d Distortion) P2() float64 { return d[3] }
func (d Distortion) K3() float64 { return d[4] }

// Apply distorts a point in normalized image coordinates.
func (d Distortion) Apply(p geom.Vec2) geom.Vec2 {
	x, y := p.X, p.Y
	r2 := x*x + y*y
	radial := 1 + d[0]*r2 + d[1]*r2*r2 + d[4]*r2*r2*r2
	return geom.Vec2{
		X: x*radial + 2*d[2]*x*y + d[3]*(r2+2*x*x),
		Y: y*radial + d[2]*(r2+2*y*y) + 2*d[3]*x*y,
	}
}

// Remove inverts Apply by fixed-point iteration.
func (d Distortion) Remove(p geom.Vec2) geom.Vec2 {
	if d == (Distortion{}) {
		return p
	}
	x, y := p.X, p.Y
	for i := 0; i < 20; i++ {
		r2 := x*x + y*y
		radial := 1 + d[0]*r2 + d[1]*r2*r2 + d[4]*r2*r2*r2
		if radial == 0 {
			break
		}
		dx := 2*d[2]*x*y + d[3]*(r2+2*x*x)
		dy := d[2]*(r2+2*y*y) + 2*d[3]*x*y
		x = (p.X - dx) / radial
		y = (p.Y - dy) / radial
	}
	return geom.Vec2{X: x, Y: y}
}
