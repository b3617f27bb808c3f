package ml

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type artifactWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch logs a warning whenever a loaded artifact file changes on disk.
// Loaded artifacts are never replaced; picking up a new model needs a restart.
func (a *Artifacts) Watch(logger *zap.Logger) error {
	if a.watcher != nil {
		return nil
	}
	if len(a.paths) == 0 {
		return errors.New("artifacts were not loaded from files")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := make(map[string]struct{}, len(a.paths))
	dirs := make(map[string]struct{})
	for _, path := range a.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return err
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	// watch directories so editors that replace files via rename are still seen
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}

	w := &artifactWatcher{watcher: watcher, done: make(chan struct{})}
	go w.run(watched, logger)
	a.watcher = w
	return nil
}

func (w *artifactWatcher) run(watched map[string]struct{}, logger *zap.Logger) {
	defer close(w.done)
	const changed = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[name]; !ok || event.Op&changed == 0 {
				continue
			}
			logger.Warn("artifact changed on disk; restart the service to load it",
				zap.String("path", name),
				zap.String("op", event.Op.String()))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("artifact watcher failed", zap.Error(err))
		}
	}
}

func (w *artifactWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
