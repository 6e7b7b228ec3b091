//go:build sdl

// Package display shows annotated frames in an SDL2 window. Keys typed into
// the window go to the session, and closing the window quits.
//
// Every SDL call goes through sdl.Do, so the process must run under
// sdl.Main.
package display

import (
	"fmt"
	"image"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/arcalib/internal/backend"
	"github.com/Faultbox/arcalib/internal/config"
	"github.com/Faultbox/arcalib/internal/logger"
	"github.com/Faultbox/arcalib/internal/pipeline"
)

func init() {
	backend.RegisterDisplay("sdl", func(cfg *config.Config, press func(rune)) (pipeline.Display, error) {
		return New(Config{Title: cfg.Display.Title, Width: cfg.Source.Width, Height: cfg.Source.Height}, press)
	})
}

// Config holds window configuration.
type Config struct {
	Title  string
	Width  int
	Height int
}

// Window is an SDL2 window with a streaming texture sized to the frames.
type Window struct {
	config   Config
	press    func(rune)
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	texSize  image.Point
	closed   bool
}

// New creates the window. press receives printable keys and 'q' when the
// window is closed.
func New(cfg Config, press func(rune)) (*Window, error) {
	w := &Window{config: cfg, press: press}

	var err error
	sdl.Do(func() {
		if err = sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
			err = fmt.Errorf("SDL_Init failed: %w", err)
			return
		}
		w.window, err = sdl.CreateWindow(cfg.Title,
			sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
			int32(cfg.Width), int32(cfg.Height),
			sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
		if err != nil {
			sdl.Quit()
			err = fmt.Errorf("SDL_CreateWindow failed: %w", err)
			return
		}
		w.renderer, err = sdl.CreateRenderer(w.window, -1, sdl.RENDERER_ACCELERATED)
		if err != nil {
			w.window.Destroy()
			sdl.Quit()
			err = fmt.Errorf("SDL_CreateRenderer failed: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height))
	return w, nil
}

// Show uploads img, presents it and drains pending window events.
func (w *Window) Show(img *image.RGBA) error {
	var err error
	sdl.Do(func() {
		if w.closed {
			return
		}
		if err = w.ensureTexture(img.Rect.Size()); err != nil {
			return
		}
		if err = w.upload(img); err != nil {
			return
		}
		w.renderer.Clear()
		w.renderer.Copy(w.texture, nil, nil)
		w.renderer.Present()
		w.pollEvents()
	})
	return err
}

func (w *Window) ensureTexture(size image.Point) error {
	if w.texture != nil && w.texSize == size {
		return nil
	}
	if w.texture != nil {
		w.texture.Destroy()
	}
	// ABGR8888 is R,G,B,A byte order on little-endian hosts, matching image.RGBA.
	tex, err := w.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_ABGR8888), sdl.TEXTUREACCESS_STREAMING,
		int32(size.X), int32(size.Y))
	if err != nil {
		return fmt.Errorf("creating texture: %w", err)
	}
	w.texture, w.texSize = tex, size
	return nil
}

func (w *Window) upload(img *image.RGBA) error {
	pixels, pitch, err := w.texture.Lock(nil)
	if err != nil {
		return fmt.Errorf("locking texture: %w", err)
	}
	defer w.texture.Unlock()

	rowBytes := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		copy(pixels[y*pitch:], src)
	}
	return nil
}

func (w *Window) pollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.emit('q')
		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				if r, ok := keyRune(e.Keysym.Sym); ok {
					w.emit(r)
				}
			}
		}
	}
}

func (w *Window) emit(r rune) {
	if w.press != nil {
		w.press(r)
	}
}

// keyRune maps printable ASCII keycodes to runes; SDL keycodes for those
// keys are the characters themselves.
func keyRune(k sdl.Keycode) (rune, bool) {
	if k >= 0x21 && k < 0x7f {
		return rune(k), true
	}
	return 0, false
}

// Close destroys the window and cleans up SDL2.
func (w *Window) Close() error {
	sdl.Do(func() {
		if w.closed {
			return
		}
		w.closed = true
		logger.Info("closing window")
		if w.texture != nil {
			w.texture.Destroy()
		}
		if w.renderer != nil {
			w.renderer.Destroy()
		}
		if w.window != nil {
			w.window.Destroy()
		}
		sdl.Quit()
	})
	return nil
}
