package camera

import "github.com/Faultbox/arcalib/pkg/geom"

// ProjectPoint maps a target-space point to pixel coordinates.
func (m Model) ProjectPoint(p geom.Vec3, pose Pose) geom.Vec2 {
	c := pose.Transform(p)
	n := m.Distortion.Apply(geom.Vec2{X: c.X / c.Z, Y: c.Y / c.Z})
	return m.Intrinsics.toPixel(n)
}

// ProjectPoints maps each target-space point to pixel coordinates. The
// output has the same length and order as obj.
func (m Model) ProjectPoints(obj []geom.Vec3, pose Pose) []geom.Vec2 {
	out := make([]geom.Vec2, len(obj))
	for i, p := range obj {
		out[i] = m.ProjectPoint(p, pose)
	}
	return out
}

// Normalize maps a pixel to undistorted normalized image coordinates.
func (m Model) Normalize(px geom.Vec2) geom.Vec2 {
	return m.Distortion.Remove(m.Intrinsics.fromPixel(px))
}

func (k Intrinsics) toPixel(n geom.Vec2) geom.Vec2 {
	return geom.Vec2{
		X: k[0]*n.X + k[1]*n.Y + k[2],
		Y: k[4]*n.Y + k[5],
	}
}

func (k Intrinsics) fromPixel(px geom.Vec2) geom.Vec2 {
	y := (px.Y - k[5]) / k[4]
	x := (px.X - k[2] - k[1]*y) / k[0]
	return geom.Vec2{X: x, Y: y}
}

// rmsError returns the RMS distance between projected and observed points.
func rmsError(m Model, obj [][]geom.Vec3, img [][]geom.Vec2, poses []Pose) float64 {
	return sqrtMean(sumSquaredError(m, obj, img, poses), countPoints(img))
}

func sumSquaredError(m Model, obj [][]geom.Vec3, img [][]geom.Vec2, poses []Pose) float64 {
	var sum float64
	for v := range obj {
		for i, p := range obj[v] {
			d := m.ProjectPoint(p, poses[v]).Sub(img[v][i])
			sum += d.Dot(d)
		}
	}
	return sum
}

func countPoints(img [][]geom.Vec2) int {
	n := 0
	for _, v := range img {
		n += len(v)
	}
	return n
}
