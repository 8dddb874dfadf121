// Package watch calls back when watched files change, coalescing bursts of
// filesystem events into a single call per file.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches a set of files. Parent directories are watched instead of
// the files themselves so that editors replacing a file on save are seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration

	mu     sync.Mutex
	files  map[string]bool
	timers map[string]*time.Timer
}

// New returns a Watcher that waits debounce after the last event on a file
// before calling back.
func New(debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		fs:       fsw,
		log:      log,
		debounce: debounce,
		files:    make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Add starts watching files.
func (w *Watcher) Add(files ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", file, err)
		}
		if err := w.fs.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", abs, err)
		}
		w.files[abs] = true
	}
	return nil
}

// Run calls fn with the absolute path of each changed file until ctx is
// done or the watcher is closed. Calls to fn are made from timer
// goroutines and may overlap for different files.
func (w *Watcher) Run(ctx context.Context, fn func(path string)) error {
	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.changed(ev.Name, fn)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) changed(name string, fn func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	name = filepath.Clean(name)
	if !w.files[name] {
		return
	}
	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.log.Debug("file changed", zap.String("file", name))
	w.timers[name] = time.AfterFunc(w.debounce, func() { fn(name) })
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
}

// Close stops watching. A blocked Run returns.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
