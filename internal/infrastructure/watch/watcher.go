// Package watch turns filesystem notifications for one directory into
// filtered, dispatched file events.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/autotag/pkg/domain/events"
	"github.com/fsnotify/fsnotify"
)

// RawHandler receives unfiltered creation and deletion notifications.
type RawHandler func(kind events.Kind, path string)

// PathWatcher watches a single directory (non-recursive) using fsnotify and
// reports creations and deletions on one goroutine, in notification order.
type PathWatcher struct {
	dir     string
	handler RawHandler
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	errors  atomic.Uint64
}

// NewPathWatcher creates a watcher for dir. Nothing is watched until Start.
func NewPathWatcher(dir string, handler RawHandler, logger *slog.Logger) *PathWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PathWatcher{
		dir:     dir,
		handler: handler,
		logger:  logger,
	}
}

// Start begins monitoring. It must be called at most once.
func (w *PathWatcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.run(fw, w.done)
	return nil
}

// Close stops monitoring and waits for the delivery goroutine to exit. A
// handler call already in progress is allowed to finish.
func (w *PathWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// Errors reports how many fsnotify errors were seen.
func (w *PathWatcher) Errors() uint64 {
	return w.errors.Load()
}

func (w *PathWatcher) run(fw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			// Stop wins over events that were already queued.
			select {
			case <-done:
				return
			default:
			}
			w.handle(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.errors.Add(1)
			w.logger.Warn("watcher error", "directory", w.dir, "error", err)
		}
	}
}

func (w *PathWatcher) handle(event fsnotify.Event) {
	if w.handler == nil {
		return
	}
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return
		}
		w.handler(events.KindCreated, event.Name)
	case event.Has(fsnotify.Remove):
		w.handler(events.KindDeleted, event.Name)
	}
}
