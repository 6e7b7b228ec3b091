//go:build gocv

// Package gocvio adapts OpenCV through gocv: camera capture, chessboard
// detection with sub-pixel refinement, corner features and a HighGUI window.
// Importing it registers the "gocv" source and display drivers.
package gocvio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Faultbox/arcalib/internal/backend"
	"github.com/Faultbox/arcalib/internal/config"
	"github.com/Faultbox/arcalib/internal/pipeline"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// ErrEmptyFrame is returned when the device hands back no image.
var ErrEmptyFrame = errors.New("empty frame")

func init() {
	backend.RegisterSource("gocv", func(cfg *config.Config) (*backend.Capture, error) {
		src, err := OpenCapture(cfg.Source.Device, cfg.Source.Width, cfg.Source.Height)
		if err != nil {
			return nil, err
		}
		return &backend.Capture{
			Source:   src,
			Detector: ChessboardDetector{},
			Features: CornerFeatures{MaxCorners: 2000},
			Geometry: Geometry{},
		}, nil
	})
	backend.RegisterDisplay("gocv", func(cfg *config.Config, press func(rune)) (pipeline.Display, error) {
		return NewWindow(cfg.Display.Title, press), nil
	})
}

// Capture reads BGR frames from a video device and hands them out as RGBA.
type Capture struct {
	mu   sync.Mutex
	cap  *gocv.VideoCapture
	bgr  gocv.Mat
	rgba gocv.Mat
}

// OpenCapture opens a capture device. Non-positive sizes keep the device default.
func OpenCapture(device, width, height int) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("opening capture device %d: %w", device, err)
	}
	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Capture{cap: vc, bgr: gocv.NewMat(), rgba: gocv.NewMat()}, nil
}

// Read grabs the next frame. The device paces the loop, so ctx is only
// checked before blocking.
func (c *Capture) Read(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.cap.Read(&c.bgr); !ok {
		return nil, fmt.Errorf("capture device closed: %w", ErrEmptyFrame)
	}
	if c.bgr.Empty() {
		return nil, ErrEmptyFrame
	}
	gocv.CvtColor(c.bgr, &c.rgba, gocv.ColorBGRToRGBA)

	img := image.NewRGBA(image.Rect(0, 0, c.rgba.Cols(), c.rgba.Rows()))
	copy(img.Pix, c.rgba.ToBytes())
	return img, nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bgr.Close()
	c.rgba.Close()
	return c.cap.Close()
}

// ChessboardDetector finds inner chessboard corners and refines them to
// sub-pixel accuracy with an 11x11 window.
type ChessboardDetector struct{}

// FindCorners implements pipeline.Detector.
func (ChessboardDetector) FindCorners(img image.Image, columns, rows int) ([]geom.Vec2, bool) {
	gray, err := grayMat(img)
	if err != nil {
		return nil, false
	}
	defer gray.Close()

	corners := gocv.NewMat()
	defer corners.Close()
	flags := gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage | gocv.CalibCBFastCheck
	if !gocv.FindChessboardCorners(gray, image.Pt(columns, rows), &corners, flags) {
		return nil, false
	}

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, 30, 0.1)
	gocv.CornerSubPix(gray, &corners, image.Pt(11, 11), image.Pt(-1, -1), criteria)
	return matPoints(corners), corners.Rows() == columns*rows
}

// CornerFeatures marks strong corners, up to MaxCorners of them.
type CornerFeatures struct {
	MaxCorners int
}

// Detect implements pipeline.FeatureDetector.
func (f CornerFeatures) Detect(img image.Image) []geom.Vec2 {
	gray, err := grayMat(img)
	if err != nil {
		return nil
	}
	defer gray.Close()

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(gray, &corners, f.MaxCorners, 0.01, 10)
	return matPoints(corners)
}

// Window shows frames in a HighGUI window and forwards typed keys.
type Window struct {
	win   *gocv.Window
	press func(rune)
	bgr   gocv.Mat
}

// NewWindow opens a named window.
func NewWindow(title string, press func(rune)) *Window {
	return &Window{win: gocv.NewWindow(title), press: press, bgr: gocv.NewMat()}
}

// Show displays img and polls the keyboard for 1ms.
func (w *Window) Show(img *image.RGBA) error {
	src, err := gocv.NewMatFromBytes(img.Rect.Dy(), img.Rect.Dx(), gocv.MatTypeCV8UC4, img.Pix)
	if err != nil {
		return fmt.Errorf("converting frame: %w", err)
	}
	defer src.Close()
	gocv.CvtColor(src, &w.bgr, gocv.ColorRGBAToBGR)
	w.win.IMShow(w.bgr)

	if key := w.win.WaitKey(1); key > 0 && key < 128 && w.press != nil {
		w.press(rune(key))
	}
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	w.bgr.Close()
	return w.win.Close()
}

func grayMat(img image.Image) (gocv.Mat, error) {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*rgba.Rect.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
		draw.Draw(rgba, rgba.Rect, img, img.Bounds().Min, draw.Src)
	}
	src, err := gocv.NewMatFromBytes(rgba.Rect.Dy(), rgba.Rect.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer src.Close()
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)
	return gray, nil
}

// matPoints reads an Nx1 CV_32FC2 point list.
func matPoints(m gocv.Mat) []geom.Vec2 {
	pts := make([]geom.Vec2, 0, m.Rows())
	for i := 0; i < m.Rows(); i++ {
		v := m.GetVecfAt(i, 0)
		pts = append(pts, geom.Vec2{X: float64(v[0]), Y: float64(v[1])})
	}
	return pts
}
