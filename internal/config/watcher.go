package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/model"
)

const debounceDelay = 500 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk
type Watcher struct {
	path      string
	config    *model.Config
	callbacks []func(*model.Config)
	mu        sync.RWMutex
	logger    *log.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewWatcher creates a watcher for the configuration file at path
func NewWatcher(path string, initial *model.Config, logger *log.Logger) (*Watcher, error) {
	if initial == nil {
		return nil, fmt.Errorf("initial config is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Editors replace files on save, so watch the directory rather than the file
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		config:  initial,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info(context.Background(), "Configuration watcher started", log.Fields{"path": path})
	return w, nil
}

// OnChange registers a callback invoked after a successful reload
func (w *Watcher) OnChange(callback func(*model.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Config returns the current configuration
func (w *Watcher) Config() *model.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the watcher
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	target := filepath.Clean(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.Debug(context.Background(), "Configuration file changed", log.Fields{"operation": event.Op.String()})
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(context.Background(), "File watcher error", log.Fields{"error": err})

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Info(context.Background(), "Configuration watcher stopped", nil)
			return
		}
	}
}

// reload reads the file again and notifies callbacks when the contents changed
func (w *Watcher) reload() {
	ctx := context.Background()

	newConfig, err := ConfigLoad(w.path)
	if err != nil {
		w.logger.Error(ctx, "Invalid configuration after reload", log.Fields{"error": err})
		return
	}

	w.mu.Lock()
	if reflect.DeepEqual(w.config, newConfig) {
		w.mu.Unlock()
		w.logger.Debug(ctx, "Configuration unchanged after reload", nil)
		return
	}
	w.config = newConfig
	callbacks := make([]func(*model.Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for i, callback := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error(ctx, "Configuration callback panicked", log.Fields{"callback": i, "panic": r})
				}
			}()
			callback(newConfig)
		}()
	}

	w.logger.Info(ctx, "Configuration reloaded", log.Fields{"callbacks": len(callbacks)})
}
