// Package watch feeds a JSON file into a form as it is edited on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the write bursts editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

// ApplyFunc receives the file contents after each settled change.
type ApplyFunc func(ctx context.Context, text string) error

// Watcher applies a file's text on start and after every change.
type Watcher struct {
	path     string
	debounce time.Duration
	apply    ApplyFunc
	log      *zap.Logger

	last string
}

// New creates a Watcher for path. A non-positive debounce uses DefaultDebounce.
func New(path string, debounce time.Duration, apply ApplyFunc, log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		apply:    apply,
		log:      log.Named("watch").With(zap.String("file", path)),
	}
}

// Run applies the file once and then watches it until ctx ends.
// Apply failures are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		abs = w.path
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher init: %w", err)
	}
	defer fw.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	dir := filepath.Dir(abs)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch add dir %s: %w", dir, err)
	}

	w.sync(ctx, abs)

	var (
		timer  *time.Timer
		settle <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			// Remove means the file is gone; wait until it reappears.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				settle = timer.C
			}
		case <-settle:
			settle = nil
			w.sync(ctx, abs)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// sync applies the file if its text changed since the last apply.
func (w *Watcher) sync(ctx context.Context, abs string) {
	data, err := os.ReadFile(abs)
	if err != nil {
		w.log.Warn("read failed", zap.Error(err))
		return
	}
	text := string(data)
	if text == w.last {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := w.apply(cctx, text); err != nil {
		w.log.Warn("apply failed", zap.Error(err))
		return
	}
	w.last = text
	w.log.Debug("applied file", zap.Int("bytes", len(data)))
}
