package commands

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/am"
	"github.com/teranos/typeglyph/annotate"
	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
	"github.com/teranos/typeglyph/trigger"
)

type passKey struct{}

type passStamp struct {
	path string
	gen  uint64
}

// staleGate drops tables from passes that a newer trigger has overtaken
// before handing the rest to next
type staleGate struct {
	next      annotate.Renderer
	debouncer *trigger.Debouncer
	logger    *zap.SugaredLogger
}

func (g *staleGate) Render(ctx context.Context, doc *document.Document, table *annotate.Table) error {
	if stamp, ok := ctx.Value(passKey{}).(passStamp); ok && !g.debouncer.IsCurrent(stamp.path, stamp.gen) {
		logger.FromContext(ctx, g.logger).Debugw("discarding stale table",
			logger.FieldURI, doc.URI,
			logger.FieldVersion, doc.Version)
		return nil
	}
	return g.next.Render(ctx, doc, table)
}

// fileWatcher re-annotates files after they have been quiet for a debounce
// period. Reloads of the project config re-run every file.
type fileWatcher struct {
	session   *Session
	gate      *staleGate
	debouncer *trigger.Debouncer
	fs        *fsnotify.Watcher
	logger    *zap.SugaredLogger

	mu    sync.Mutex
	paths map[string]struct{} // absolute paths
}

// newFileWatcher creates the session, with next receiving every table that
// is still current when its pass ends. next may be set later with SetRenderer,
// before the first Add.
func newFileWatcher(cfg *am.Config, next annotate.Renderer) (*fileWatcher, error) {
	log := logger.ComponentLogger("watch")
	gate := &staleGate{next: next, logger: log}

	session, err := NewSession(SessionConfig{Config: cfg, Renderer: gate})
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &fileWatcher{
		session: session,
		gate:    gate,
		fs:      fs,
		logger:  log,
		paths:   make(map[string]struct{}),
	}
	w.debouncer = trigger.NewDebouncer(cfg.Glyphs.Debounce(), w.runPass)
	gate.debouncer = w.debouncer
	return w, nil
}

// SetRenderer replaces the renderer behind the stale-table gate
func (w *fileWatcher) SetRenderer(next annotate.Renderer) {
	w.gate.next = next
}

// Add watches path and schedules its first pass
func (w *fileWatcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", path)
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", path)
	}

	w.mu.Lock()
	w.paths[abs] = struct{}{}
	w.mu.Unlock()

	w.debouncer.Trigger(abs)
	return nil
}

// WatchConfig re-applies settings and re-runs every file when the config at
// path changes. An empty path does nothing.
func (w *fileWatcher) WatchConfig(path string, loader func() (*am.Config, error)) (*am.ConfigWatcher, error) {
	if path == "" {
		return nil, nil
	}
	cw, err := am.NewConfigWatcher(path, loader)
	if err != nil {
		return nil, err
	}
	cw.OnReload(w.session.Apply)
	cw.OnReload(func(*am.Config) error {
		w.triggerAll()
		return nil
	})
	cw.Start()
	return cw, nil
}

func (w *fileWatcher) triggerAll() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	for _, p := range paths {
		w.debouncer.Trigger(p)
	}
}

func (w *fileWatcher) runPass(ctx context.Context, path string, gen uint64) {
	ctx = context.WithValue(ctx, passKey{}, passStamp{path: path, gen: gen})
	start := time.Now()

	if _, err := w.session.Annotate(ctx, path); err != nil {
		w.logger.Warnw("annotation pass failed",
			"path", path,
			logger.FieldError, err)
		return
	}
	w.logger.Debugw("pass finished",
		"path", path,
		"generation", gen,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
}

// Run dispatches file events until ctx is done
func (w *fileWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			w.mu.Lock()
			_, watched := w.paths[path]
			w.mu.Unlock()
			if watched {
				w.debouncer.Trigger(path)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("file watcher error", logger.FieldError, err)
		}
	}
}

// Close stops pending passes, the fsnotify watcher and the language servers
func (w *fileWatcher) Close() error {
	w.debouncer.Stop()
	err := w.fs.Close()
	shutdownSession(w.session)
	return err
}
