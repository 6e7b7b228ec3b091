// Package render draws overlay primitives onto RGBA frames and writes
// annotated frames to disk.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/Faultbox/arcalib/pkg/geom"
)

// circleSegments is the polygon resolution used for discs and rings.
const circleSegments = 32

// Raster draws antialiased lines and circles on an RGBA image. Coordinates
// are pixels with the origin at the top-left corner.
type Raster struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// NewRaster wraps img. Drawing modifies img in place.
func NewRaster(img *image.RGBA) *Raster {
	b := img.Bounds()
	return &Raster{img: img, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

// Image returns the image being drawn on.
func (r *Raster) Image() *image.RGBA {
	return r.img
}

// Line strokes a segment with round caps. Thickness below one is drawn as one
// pixel wide.
func (r *Raster) Line(a, b geom.Vec2, c color.RGBA, thickness float64) {
	if !a.IsFinite() || !b.IsFinite() {
		return
	}
	half := math.Max(thickness, 1) / 2

	r.begin()
	dir := b.Sub(a)
	if dir.Length() > 0 {
		// Wound the same way as disc so caps and body add up.
		n := geom.Vec2{X: dir.Y, Y: -dir.X}.Normalize().Scale(half)
		r.moveTo(a.Add(n))
		r.lineTo(b.Add(n))
		r.lineTo(b.Sub(n))
		r.lineTo(a.Sub(n))
		r.z.ClosePath()
	}
	if thickness > 1 {
		r.disc(a, half, false)
		r.disc(b, half, false)
	}
	r.fill(c)
}

// Circle strokes a ring of the given thickness centered on the radius, or
// fills a disc when thickness is negative.
func (r *Raster) Circle(center geom.Vec2, radius float64, c color.RGBA, thickness float64) {
	if !center.IsFinite() || radius <= 0 {
		return
	}
	r.begin()
	if thickness < 0 {
		r.disc(center, radius, false)
	} else {
		half := math.Max(thickness, 1) / 2
		r.disc(center, radius+half, false)
		if inner := radius - half; inner > 0 {
			// Opposite winding cancels the inside.
			r.disc(center, inner, true)
		}
	}
	r.fill(c)
}

// Fill paints the whole image with c.
func (r *Raster) Fill(c color.RGBA) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Polygon fills a closed polygon.
func (r *Raster) Polygon(pts []geom.Vec2, c color.RGBA) {
	if len(pts) < 3 {
		return
	}
	r.begin()
	r.moveTo(pts[0])
	for _, p := range pts[1:] {
		r.lineTo(p)
	}
	r.z.ClosePath()
	r.fill(c)
}

func (r *Raster) begin() {
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
}

func (r *Raster) fill(c color.RGBA) {
	r.z.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{})
}

func (r *Raster) moveTo(p geom.Vec2) {
	o := r.img.Bounds().Min
	r.z.MoveTo(float32(p.X-float64(o.X)), float32(p.Y-float64(o.Y)))
}

func (r *Raster) lineTo(p geom.Vec2) {
	o := r.img.Bounds().Min
	r.z.LineTo(float32(p.X-float64(o.X)), float32(p.Y-float64(o.Y)))
}

func (r *Raster) disc(center geom.Vec2, radius float64, reverse bool) {
	step := 2 * math.Pi / circleSegments
	if reverse {
		step = -step
	}
	r.moveTo(geom.Vec2{X: center.X + radius, Y: center.Y})
	for i := 1; i < circleSegments; i++ {
		a := float64(i) * step
		r.lineTo(geom.Vec2{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)})
	}
	r.z.ClosePath()
}
