// Package watcher keeps the index in sync with the documents directory:
// PDFs dropped in are ingested, PDFs removed trigger cleanup.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches the documents directory and invokes callbacks on PDF
// changes. Writes are debounced so a file being copied in is ingested once,
// after it settles.
type Watcher struct {
	dir      string
	onIngest func(path string)
	onRemove func(filename string)
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	pending  map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the settle delay before a changed file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets a logger for watch events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher over dir. onIngest receives the full path of a new
// or changed PDF; onRemove receives the bare filename of a deleted one.
func New(dir string, onIngest func(path string), onRemove func(filename string), opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		onIngest: onIngest,
		onRemove: onRemove,
		debounce: defaultDebounce,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It creates the directory if needed and runs until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.mu.Unlock()
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	w.logger.Info("watching documents directory", zap.String("dir", w.dir))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !isPDF(path) {
		return
	}
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		w.logger.Debug("document changed", zap.String("path", path))
		w.scheduleIngest(path)
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelPending(path)
		w.logger.Debug("document removed", zap.String("path", path))
		if w.onRemove != nil {
			w.onRemove(filepath.Base(path))
		}
	}
}

func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if w.onIngest != nil {
			w.onIngest(path)
		}
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
