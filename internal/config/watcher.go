package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce suppresses the event bursts editors produce for one save.
const debounce = time.Second

// Watcher warns when the configuration file changes on disk. Live
// reload is deliberately not supported; the warning tells the user a
// restart is needed.
type Watcher struct {
	fw     *fsnotify.Watcher
	logger *slog.Logger
}

// Watch starts watching the configuration file at path.
func Watch(path string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on
	// save, which would drop a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{fw: fw, logger: logger}
	go w.run(filepath.Clean(path))
	return w, nil
}

func (w *Watcher) run(path string) {
	var last time.Time
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if time.Since(last) < debounce {
				continue
			}
			last = time.Now()
			w.logger.Warn("configuration changed on disk, restart to apply", "path", path)
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
