package prompts

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads prompt overrides when their files change and notifies a
// callback with the affected column ids. The service wires the callback to
// cache invalidation so edited prompts never serve stale artifacts.
type Watcher struct {
	store    *Store
	dir      string
	watcher  *fsnotify.Watcher
	onChange func(columnIDs []string)
	logger   *slog.Logger
	done     chan struct{}
}

// NewWatcher starts watching dir for triplet file changes.
func NewWatcher(store *Store, dir string, onChange func(columnIDs []string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		store:    store,
		dir:      dir,
		watcher:  fsw,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".yaml" {
				continue
			}
			w.handleChange(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("prompt watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleChange(path string) {
	before := w.versionSnapshot()

	if err := w.store.loadFile(path); err != nil {
		w.logger.Warn("reload prompt file failed", "path", path, "error", err)
		return
	}

	var changed []string
	w.store.mu.RLock()
	for id, triplet := range w.store.triplets {
		if before[id] != triplet.Version() {
			changed = append(changed, id)
		}
	}
	w.store.mu.RUnlock()

	if len(changed) == 0 {
		return
	}

	w.logger.Info("prompt templates reloaded", "path", path, "columns", changed)
	if w.onChange != nil {
		w.onChange(changed)
	}
}

func (w *Watcher) versionSnapshot() map[string]string {
	w.store.mu.RLock()
	defer w.store.mu.RUnlock()

	snap := make(map[string]string, len(w.store.triplets))
	for id, triplet := range w.store.triplets {
		snap[id] = triplet.Version()
	}
	return snap
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
