package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ez-emfi/volod/internal/models"
)

// Watcher stages externally edited snapshot files. Operators sometimes edit
// probe.json directly on the bench; the watcher turns those edits into
// ordinary staged writes, subject to the same gate as every other write.
type Watcher struct {
	store   Store
	watcher *fsnotify.Watcher
	onStage func(models.ConfigSnapshot)
}

// NewWatcher watches the store's file and calls onStage with the re-read
// snapshot after each external write. Returns nil (not an error) if the
// fsnotify watcher cannot be created; hot reload is best-effort.
func NewWatcher(store Store, onStage func(models.ConfigSnapshot)) *Watcher {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config: could not create fsnotify watcher", "err", err)
		return nil
	}
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		slog.Warn("config: could not watch config dir", "err", err)
		fsw.Close()
		return nil
	}

	w := &Watcher{store: store, watcher: fsw, onStage: onStage}
	go w.watchLoop()
	return w
}

// Close stops the file watcher.
func (w *Watcher) Close() {
	if w != nil && w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) watchLoop() {
	path := w.store.Path()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name == path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				snap, err := w.store.Load()
				if err != nil {
					slog.Warn("config: failed to reload snapshot", "err", err)
					continue
				}
				slog.Info("config: snapshot file edited, staging", "path", path)
				w.onStage(*snap)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}
