// Package features finds corner-like interest points in a frame.
package features

import (
	"image"
	"math"

	"github.com/Faultbox/arcalib/pkg/geom"
)

// Harris detector defaults.
const (
	DefaultBlockSize = 2
	DefaultK         = 0.04
	DefaultThreshold = 200
	DefaultMaxPoints = 2000
)

// Harris scores every pixel with the Harris corner response over 3x3 Sobel
// gradients, rescales the scores to 0..255 and keeps pixels above Threshold.
type Harris struct {
	BlockSize int
	K         float64
	Threshold float64
	MaxPoints int
}

// NewHarris returns a detector with the default parameters.
func NewHarris() *Harris {
	return &Harris{
		BlockSize: DefaultBlockSize,
		K:         DefaultK,
		Threshold: DefaultThreshold,
		MaxPoints: DefaultMaxPoints,
	}
}

// Detect returns pixel centers whose normalized response exceeds Threshold,
// in row-major order, at most MaxPoints of them.
func (h *Harris) Detect(img image.Image) []geom.Vec2 {
	b := img.Bounds()
	w, ht := b.Dx(), b.Dy()
	if w < 3 || ht < 3 {
		return nil
	}

	gray := luminance(img)
	ix, iy := sobel(gray, w, ht)
	resp := h.response(ix, iy, w, ht)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range resp {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		return nil
	}
	scale := 255 / (hi - lo)

	var pts []geom.Vec2
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			if (resp[y*w+x]-lo)*scale > h.Threshold {
				pts = append(pts, geom.Vec2{X: float64(x + b.Min.X), Y: float64(y + b.Min.Y)})
				if h.MaxPoints > 0 && len(pts) >= h.MaxPoints {
					return pts
				}
			}
		}
	}
	return pts
}

func (h *Harris) response(ix, iy []float64, w, ht int) []float64 {
	block := h.BlockSize
	if block < 1 {
		block = DefaultBlockSize
	}
	lo := -(block / 2)
	hi := lo + block - 1

	resp := make([]float64, w*ht)
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			var sxx, syy, sxy float64
			for dy := lo; dy <= hi; dy++ {
				yy := reflect101(y+dy, ht)
				for dx := lo; dx <= hi; dx++ {
					i := yy*w + reflect101(x+dx, w)
					gx, gy := ix[i], iy[i]
					sxx += gx * gx
					syy += gy * gy
					sxy += gx * gy
				}
			}
			trace := sxx + syy
			resp[y*w+x] = sxx*syy - sxy*sxy - h.K*trace*trace
		}
	}
	return resp
}

// luminance converts to Rec. 601 luma in 0..255.
func luminance(img image.Image) []float64 {
	b := img.Bounds()
	w := b.Dx()
	out := make([]float64, w*b.Dy())
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			row := rgba.Pix[y*rgba.Stride:]
			for x := 0; x < w; x++ {
				p := row[x*4:]
				out[y*w+x] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
			}
		}
		return out
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257
		}
	}
	return out
}

// sobel returns horizontal and vertical 3x3 Sobel derivatives.
func sobel(g []float64, w, h int) (ix, iy []float64) {
	ix = make([]float64, w*h)
	iy = make([]float64, w*h)
	at := func(x, y int) float64 {
		return g[reflect101(y, h)*w+reflect101(x, w)]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl, t, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			l, r := at(x-1, y), at(x+1, y)
			bl, bm, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)
			ix[y*w+x] = (tr + 2*r + br) - (tl + 2*l + bl)
			iy[y*w+x] = (bl + 2*bm + br) - (tl + 2*t + tr)
		}
	}
	return ix, iy
}

// reflect101 mirrors out-of-range indices without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
