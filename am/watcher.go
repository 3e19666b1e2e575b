package am

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
	"github.com/teranos/typeglyph/trigger"
)

// DefaultReloadDebounce coalesces the burst of events an editor save produces
const DefaultReloadDebounce = 500 * time.Millisecond

// ConfigWatcher watches a config file for changes and triggers reload callbacks
type ConfigWatcher struct {
	configPath string
	watcher    *fsnotify.Watcher
	debouncer  *trigger.Debouncer
	loader     func() (*Config, error)

	mu        sync.RWMutex
	callbacks []ReloadCallback

	ownWriteMu    sync.Mutex
	ownWriteUntil time.Time

	stopOnce sync.Once
	done     chan struct{}
}

// ReloadCallback is called with the freshly loaded config
type ReloadCallback func(*Config) error

// NewConfigWatcher creates a watcher for configPath. The containing directory
// is watched so that editors which replace the file by rename are still seen.
// loader defaults to Reset followed by Load.
func NewConfigWatcher(configPath string, loader func() (*Config, error)) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", configPath)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch config directory for %s", abs)
	}

	if loader == nil {
		loader = func() (*Config, error) {
			Reset()
			return Load()
		}
	}

	cw := &ConfigWatcher{
		configPath: abs,
		watcher:    watcher,
		loader:     loader,
		done:       make(chan struct{}),
	}
	cw.debouncer = trigger.NewDebouncer(DefaultReloadDebounce, func(ctx context.Context, key string, gen uint64) {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed",
				logger.FieldError, err,
				"path", cw.configPath)
		}
	})
	return cw, nil
}

// Path returns the absolute path being watched
func (cw *ConfigWatcher) Path() string {
	return cw.configPath
}

// OnReload registers a callback to be called when config is reloaded
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// MarkOwnWrite ignores events for one debounce period so that a write of our
// own does not trigger a reload. A single save can raise several events.
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.ownWriteMu.Lock()
	defer cw.ownWriteMu.Unlock()
	cw.ownWriteUntil = time.Now().Add(DefaultReloadDebounce)
}

func (cw *ConfigWatcher) checkOwnWrite() bool {
	cw.ownWriteMu.Lock()
	defer cw.ownWriteMu.Unlock()
	return time.Now().Before(cw.ownWriteUntil)
}

// Start begins watching for config file changes
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case <-cw.done:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			if cw.checkOwnWrite() {
				logger.Debugw("Config watcher ignoring own write",
					"file", event.Name)
				continue
			}

			logger.Infow("Config watcher detected change",
				"file", event.Name,
				"op", event.Op.String())
			cw.debouncer.Trigger(cw.configPath)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error",
				logger.FieldError, err)
		}
	}
}

// relevant reports whether event touches the watched file itself
func (cw *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if isBackupFile(event.Name) {
		return false
	}
	return filepath.Clean(event.Name) == cw.configPath
}

// reload runs the loader and calls all callbacks. A failing callback does not
// stop the others.
func (cw *ConfigWatcher) reload() error {
	newConfig, err := cw.loader()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	logger.Infow("Config reloaded successfully",
		"path", cw.configPath)

	cw.mu.RLock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(newConfig); err != nil {
			logger.Warnw("Config reload callback error",
				logger.FieldError, err)
		}
	}
	return nil
}

// Stop stops watching for config changes. Safe to call more than once.
func (cw *ConfigWatcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.done)
		cw.debouncer.Stop()
		err = cw.watcher.Close()
	})
	return err
}

// isBackupFile checks if the file is a rotated backup (.back1, .back2, .back3)
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasPrefix(ext, ".back") && len(ext) == len(".back")+1
}
