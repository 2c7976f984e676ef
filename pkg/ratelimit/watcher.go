package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the registry reload watcher.
type WatcherConfig struct {
	// Path is the configuration file to watch.
	Path string

	// DebounceInterval is the time to wait after a change before
	// triggering a reload, preventing reload storms from editors that
	// write files in several operations. Default: 250ms.
	DebounceInterval time.Duration
}

// Watcher watches the configuration file and triggers the explicit registry
// reload operation when it changes. Reloads swap the class table atomically;
// open counter windows keep their quota snapshot until they reset.
type Watcher struct {
	watcher *fsnotify.Watcher
	config  WatcherConfig
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// NewWatcher creates a new registry reload watcher.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("watch path cannot be empty")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 250 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: fw,
		config:  config,
		logger:  slog.Default().With("component", "ratelimit.watcher"),
	}, nil
}

// Watch blocks, invoking onReload after each debounced change to the watched
// file, until the context is cancelled. Reload failures are logged and the
// previous registry contents stay in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	// Watch the directory rather than the file: editors and config
	// management tools typically replace the file via rename, which
	// drops a direct file watch.
	dir := filepath.Dir(w.config.Path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("registry reload watcher started",
		"path", w.config.Path,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	target := filepath.Clean(w.config.Path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("registry reload watcher stopped")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Debounce: restart the timer on every change.
			if timer == nil {
				timer = time.NewTimer(w.config.DebounceInterval)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.config.DebounceInterval)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.logger.Info("configuration changed, reloading limit classes",
				"path", w.config.Path,
			)
			if err := onReload(); err != nil {
				w.logger.Error("registry reload failed, keeping previous configuration",
					"error", err,
				)
			} else {
				w.logger.Info("registry reloaded")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
