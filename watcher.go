package hostcore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ComponentDirWatcher is a built-in component that watches component search
// directories and emits a CloudEvent whenever a shared library appears or is
// rewritten there. It performs no loading itself: deciding whether to load a
// newly appeared library is up to whoever observes the event, since loading
// is a main-thread operation.
type ComponentDirWatcher struct {
	subject Subject
	logger  Logger
	dirs    []string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewComponentDirWatcher creates a watcher component for the given
// directories.
func NewComponentDirWatcher(subject Subject, logger Logger, dirs ...string) (*ComponentDirWatcher, error) {
	if len(dirs) == 0 {
		return nil, ErrNoWatchDirs
	}

	return &ComponentDirWatcher{
		subject: subject,
		logger:  logger,
		dirs:    dirs,
	}, nil
}

// Name implements Component.
func (w *ComponentDirWatcher) Name() string {
	return "component-dir-watcher"
}

// Start implements Component. It begins watching the configured directories
// on a dedicated goroutine.
func (w *ComponentDirWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create directory watcher: %w", err)
	}

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
	}

	w.watcher = watcher
	w.done = make(chan struct{})

	go w.watch(ctx)
	return nil
}

// Stop implements Component.
func (w *ComponentDirWatcher) Stop(ctx context.Context) error {
	if w.watcher == nil {
		return nil
	}

	err := w.watcher.Close()
	select {
	case <-w.done:
	case <-ctx.Done():
		return fmt.Errorf("watcher shutdown interrupted: %w", ctx.Err())
	}

	w.watcher = nil
	return err
}

func (w *ComponentDirWatcher) watch(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if filepath.Ext(ev.Name) != ".so" {
				continue
			}

			w.logger.Info("Component library changed", "path", ev.Name, "op", ev.Op.String())
			if w.subject != nil {
				event := NewCloudEvent(EventTypeComponentLibraryFound, w.Name(), map[string]any{
					"path": ev.Name,
					"op":   ev.Op.String(),
				})
				if err := w.subject.NotifyObservers(ctx, event); err != nil {
					w.logger.Error("Failed to notify library change", "path", ev.Name, "error", err)
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Directory watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}
