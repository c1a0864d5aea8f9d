package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is the quiet window before a changed file is reported.
const DefaultReloadDelay = 200 * time.Millisecond

// FileChangeWatcher reports when a single file is written or replaced. It
// watches the parent directory so atomic rename-over saves are seen.
type FileChangeWatcher struct {
	path     string
	onChange func(path string)
	logger   *slog.Logger
	delay    time.Duration

	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	done      chan struct{}
	wg        sync.WaitGroup
	once      sync.Once
}

// NewFileChangeWatcher creates a watcher for path. A delay of zero uses
// DefaultReloadDelay.
func NewFileChangeWatcher(path string, delay time.Duration, onChange func(path string), logger *slog.Logger) *FileChangeWatcher {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &FileChangeWatcher{
		path:     abs,
		onChange: onChange,
		logger:   logger,
		delay:    delay,
	}
}

// Path returns the absolute path being watched.
func (w *FileChangeWatcher) Path() string {
	return w.path
}

// Start begins watching.
func (w *FileChangeWatcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.debouncer = NewDebouncer(w.delay, func() {
		w.logger.Debug("watched file changed", "path", w.path)
		if w.onChange != nil {
			w.onChange(w.path)
		}
	})

	w.wg.Add(1)
	go w.run(fw)
	return nil
}

// Close stops watching and cancels any pending notification.
func (w *FileChangeWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		close(w.done)
		w.debouncer.Stop()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *FileChangeWatcher) run(fw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.debouncer.Trigger()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file change watcher error", "path", w.path, "error", err)
		}
	}
}
