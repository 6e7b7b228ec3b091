package geom

import "math"

// SignedArea returns the shoelace area of a closed polygon. Counter-clockwise
// polygons (in a y-up frame) are positive.
func SignedArea(poly []Vec2) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	prev := poly[len(poly)-1]
	for _, p := range poly {
		sum += prev.Cross(p)
		prev = p
	}
	return sum / 2
}

// ContourArea returns the unsigned area of a closed polygon.
func ContourArea(poly []Vec2) float64 {
	return math.Abs(SignedArea(poly))
}
