// Package watcher reloads the inventory when its backing file changes.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"stockroom/internal/platform/logger"
)

const defaultDebounce = 250 * time.Millisecond

// Reloader is the part of the inventory service the watcher drives.
type Reloader interface {
	Reload(ctx context.Context) (int, error)
}

// Watcher calls Reload once a burst of writes to a single file settles.
type Watcher struct {
	path     string
	reloader Reloader
	debounce time.Duration
	logger   *slog.Logger
	fs       *fsnotify.Watcher
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New starts watching the directory holding path. Editors often replace a
// file instead of writing it, so the file itself is not watched.
func New(path string, r Reloader, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		reloader: r,
		debounce: defaultDebounce,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		w.fs.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return w, nil
}

// Run delivers change notifications until ctx ends. Reloads run on the
// calling goroutine, one at a time. A failed reload is logged and the
// watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	w.logger.InfoContext(ctx, "watching inventory file", "path", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watcher error", "error", err)

		case <-timer.C:
			n, err := w.reloader.Reload(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "reload after file change failed", "path", w.path, "error", err)
				continue
			}
			w.logger.InfoContext(ctx, "inventory file changed", "path", w.path, "items", n)

		case <-ctx.Done():
			return nil
		}
	}
}
