package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// Watcher reloads the configuration file when it changes and applies the
// logging section to the running process. Other sections need a restart;
// OnReload callbacks receive the whole reloaded config.
//
// Watcher is a lifecycle component.
type Watcher struct {
	path     string
	debounce time.Duration
	log      logger.Logger

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	done      chan struct{}
	callbacks []func(*Config)
	last      LoggingConfig
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logging collaborator.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) { w.log = l }
}

// OnReload registers fn to run after every successful reload.
func OnReload(fn func(*Config)) WatcherOption {
	return func(w *Watcher) { w.callbacks = append(w.callbacks, fn) }
}

// NewWatcher watches path. current is the configuration already applied.
func NewWatcher(path string, current LoggingConfig, debounce time.Duration, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		last:     current,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logger.OrDefault(w.log)
	return w
}

// Initialize starts watching. The parent directory is watched so that
// editors replacing the file through a rename are noticed.
func (w *Watcher) Initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return dberrors.NewInitializationError(err, "create config watcher")
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return dberrors.NewInitializationError(err, fmt.Sprintf("watch %s", w.path))
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	go w.loop(fsw, w.done)

	w.log.Info("Watching configuration file", logger.KeyPath, w.path)
	return nil
}

// Destroy stops watching and waits for the event loop to exit.
func (w *Watcher) Destroy(ctx context.Context) error {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.fsw, w.done = nil, nil
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	err := fsw.Close()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// IsInitialized reports whether the watcher is running.
func (w *Watcher) IsInitialized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsw != nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Config watcher error", logger.KeyError, err)
		}
	}
}

// reload loads the file and applies the logging section. A file that fails
// to load or validate leaves the running configuration untouched.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("Config reload failed, keeping current settings", logger.KeyPath, w.path, logger.KeyError, err)
		return
	}

	w.mu.Lock()
	prev := w.last
	w.last = cfg.Logging
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	if prev.Level != cfg.Logging.Level {
		logger.SetLevel(cfg.Logging.Level)
	}
	if prev.Format != cfg.Logging.Format {
		logger.SetFormat(cfg.Logging.Format)
	}
	if prev.Output != cfg.Logging.Output {
		w.log.Warn("Logging output changes need a restart", "output", cfg.Logging.Output)
	}

	w.log.Info("Configuration reloaded", logger.KeyPath, w.path, "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	for _, fn := range callbacks {
		fn(cfg)
	}
}
