package geom

import "math"

// Rodrigues converts an axis-angle rotation vector (direction = axis,
// length = angle in radians) to a rotation matrix.
func Rodrigues(r Vec3) Mat3 {
	theta := r.Length()
	if theta < 1e-12 {
		return Identity3()
	}
	k := r.Scale(1 / theta)
	c := math.Cos(theta)
	s := math.Sin(theta)
	t := 1 - c

	return Mat3{
		t*k.X*k.X + c, t*k.X*k.Y - s*k.Z, t*k.X*k.Z + s*k.Y,
		t*k.X*k.Y + s*k.Z, t*k.Y*k.Y + c, t*k.Y*k.Z - s*k.X,
		t*k.X*k.Z - s*k.Y, t*k.Y*k.Z + s*k.X, t*k.Z*k.Z + c,
	}
}

// RotationVector converts a rotation matrix back to its axis-angle vector.
func (m Mat3) RotationVector() Vec3 {
	cosTheta := (m[0] + m[4] + m[8] - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)
	if theta < 1e-12 {
		return Vec3{}
	}

	if math.Pi-theta < 1e-6 {
		// Near 180 degrees the antisymmetric part vanishes; use the diagonal.
		x := math.Sqrt(math.Max(0, (m[0]+1)/2))
		y := math.Sqrt(math.Max(0, (m[4]+1)/2))
		z := math.Sqrt(math.Max(0, (m[8]+1)/2))
		if m[1] < 0 {
			y = -y
		}
		if m[2] < 0 {
			z = -z
		}
		if x == 0 && m[5] < 0 {
			z = -z
		}
		return Vec3{x, y, z}.Normalize().Scale(theta)
	}

	axis := Vec3{m[7] - m[5], m[2] - m[6], m[3] - m[1]}.Scale(1 / (2 * math.Sin(theta)))
	return axis.Scale(theta)
}
