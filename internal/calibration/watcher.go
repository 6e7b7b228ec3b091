package calibration

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/internal/logger"
)

// DefaultDebounce collapses the burst of events an editor or a truncating
// writer produces for one save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a calibration file whenever it is written, created or
// renamed into place, and passes the parsed model to a callback. Files that
// fail to parse are logged and skipped; the previous model stays in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(camera.Model)
	watcher  *fsnotify.Watcher
}

// NewWatcher watches the directory holding path, so atomic replace-by-rename
// saves are seen as well as in-place writes.
func NewWatcher(path string, onChange func(camera.Model)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onChange: onChange,
		watcher:  fw,
	}, nil
}

// SetDebounce overrides DefaultDebounce. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("calibration file event", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("calibration watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	model, err := LoadModel(w.path)
	if err != nil {
		logger.Warn("ignoring unreadable calibration file", zap.String("path", w.path), zap.Error(err))
		return
	}
	logger.Info("calibration reloaded",
		zap.String("path", w.path),
		zap.Float64("fx", model.Intrinsics.Fx()),
		zap.Float64("fy", model.Intrinsics.Fy()))
	w.onChange(model)
}
