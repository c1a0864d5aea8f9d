package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/events"
)

// WatchConfig selects what an Observer monitors.
type WatchConfig struct {
	Directory string
	Suffix    string
	Recursive bool
	Exclude   []string
}

// Validate checks the fields that can be verified without touching the
// directory.
func (c WatchConfig) Validate() error {
	if c.Recursive {
		return &domain.ConfigurationError{Field: "recursive", Value: "true", Reason: "only non-recursive watching is supported"}
	}
	for _, pattern := range c.Exclude {
		if _, err := CompileExclude([]string{pattern}); err != nil {
			return &domain.ConfigurationError{Field: "exclude", Value: pattern, Err: err}
		}
	}
	return nil
}

// ValidateDirectory checks that Directory exists and is a directory.
func (c WatchConfig) ValidateDirectory() error {
	if c.Directory == "" {
		return &domain.ConfigurationError{Field: "directory", Reason: "directory is required"}
	}
	info, err := os.Stat(c.Directory)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.ConfigurationError{Field: "directory", Value: c.Directory, Reason: "does not exist", Err: err}
		}
		return &domain.ConfigurationError{Field: "directory", Value: c.Directory, Err: err}
	}
	if !info.IsDir() {
		return &domain.ConfigurationError{Field: "directory", Value: c.Directory, Reason: "not a directory"}
	}
	return nil
}

// Equal reports whether two configs watch the same thing.
func (c WatchConfig) Equal(other WatchConfig) bool {
	return c.Directory == other.Directory &&
		c.Suffix == other.Suffix &&
		c.Recursive == other.Recursive &&
		slices.Equal(c.Exclude, other.Exclude)
}

// Option configures an Observer.
type Option func(*Observer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Observer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDispatcher shares a dispatcher between observers or with the caller.
func WithDispatcher(d *events.EventDispatcher) Option {
	return func(o *Observer) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

// WithErrorHandler receives handler failures from event delivery.
func WithErrorHandler(handler func(error)) Option {
	return func(o *Observer) {
		o.onError = handler
	}
}

// WithContext sets the context passed to handlers.
func WithContext(ctx context.Context) Option {
	return func(o *Observer) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// Observer is a start/stop-able watch of one directory for one suffix.
// Matching creations and deletions are dispatched synchronously on the
// watcher goroutine.
//
// Reconfiguring a running observer stops and restarts it. Events that occur
// between the stop and the restart are lost; an event already being delivered
// finishes before the restart proceeds. Handlers must not call Stop,
// Toggle, Restart or Reconfigure on the observer that is delivering to them.
type Observer struct {
	name string

	// mu serializes lifecycle changes. It is held while waiting for the
	// watcher goroutine, so readers use stateMu instead.
	mu sync.Mutex

	stateMu   sync.RWMutex
	cfg       WatchConfig
	watcher   *PathWatcher
	lifecycle *Lifecycle

	filter     *SuffixFilter
	dispatcher *events.EventDispatcher
	logger     *slog.Logger
	onError    func(error)
	ctx        context.Context
}

// NewObserver creates a stopped observer.
func NewObserver(name string, cfg WatchConfig, opts ...Option) (*Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lifecycle, err := NewLifecycle(name)
	if err != nil {
		return nil, err
	}

	o := &Observer{
		name:       name,
		cfg:        cloneConfig(cfg),
		lifecycle:  lifecycle,
		filter:     NewSuffixFilter(cfg.Suffix, cfg.Exclude...),
		dispatcher: events.NewEventDispatcher(),
		logger:     slog.Default(),
		ctx:        context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("observer", name)
	return o, nil
}

// Name returns the observer name used as the event source.
func (o *Observer) Name() string {
	return o.name
}

// Start begins monitoring. It returns false without error when already running.
func (o *Observer) Start() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startLocked()
}

// Stop halts monitoring and waits for in-flight delivery. It returns false
// when the observer was not running.
func (o *Observer) Stop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopLocked()
}

// Toggle stops a running observer or starts a stopped one and returns the new
// running state.
func (o *Observer) Toggle() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Running() {
		o.stopLocked()
		return false, nil
	}
	if _, err := o.startLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Restart stops the observer if running and starts it again.
func (o *Observer) Restart() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopLocked()
	_, err := o.startLocked()
	return err
}

// Running reports whether the observer is monitoring.
func (o *Observer) Running() bool {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.lifecycle.Running()
}

// State returns the lifecycle state name.
func (o *Observer) State() string {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.lifecycle.Current()
}

// Config returns a copy of the current configuration.
func (o *Observer) Config() WatchConfig {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return cloneConfig(o.cfg)
}

// Directory returns the watched directory.
func (o *Observer) Directory() string {
	return o.Config().Directory
}

// Suffix returns the configured suffix.
func (o *Observer) Suffix() string {
	return o.filter.Suffix()
}

// SetDirectory changes the watched directory, restarting if running.
func (o *Observer) SetDirectory(dir string) error {
	cfg := o.Config()
	cfg.Directory = dir
	return o.Reconfigure(cfg)
}

// SetSuffix changes the suffix, restarting if running.
func (o *Observer) SetSuffix(suffix string) error {
	cfg := o.Config()
	cfg.Suffix = suffix
	return o.Reconfigure(cfg)
}

// Reconfigure replaces the configuration. A running observer is stopped
// before the change and started after it. When the new configuration is
// invalid the observer keeps running with the old one.
func (o *Observer) Reconfigure(cfg WatchConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Config().Equal(cfg) {
		return nil
	}

	running := o.Running()
	if running {
		if err := cfg.ValidateDirectory(); err != nil {
			return err
		}
		o.stopLocked()
	}

	o.stateMu.Lock()
	o.cfg = cloneConfig(cfg)
	o.filter.SetSuffix(cfg.Suffix)
	o.filter.SetExclude(cfg.Exclude...)
	o.stateMu.Unlock()

	o.logger.Info("watch configuration changed", "directory", cfg.Directory, "suffix", cfg.Suffix)

	if running {
		if _, err := o.startLocked(); err != nil {
			return err
		}
	}
	return nil
}

// OnCreated registers a handler for matching file creations.
func (o *Observer) OnCreated(name string, handler events.HandlerFunc) events.SubscriptionID {
	return o.dispatcher.Register(events.KindCreated, name, handler)
}

// OnDeleted registers a handler for matching file deletions.
func (o *Observer) OnDeleted(name string, handler events.HandlerFunc) events.SubscriptionID {
	return o.dispatcher.Register(events.KindDeleted, name, handler)
}

// Unsubscribe removes a registration made through OnCreated or OnDeleted.
func (o *Observer) Unsubscribe(kind events.Kind, id events.SubscriptionID) bool {
	return o.dispatcher.Unregister(kind, id)
}

// Dispatcher returns the dispatcher events are delivered through.
func (o *Observer) Dispatcher() *events.EventDispatcher {
	return o.dispatcher
}

func (o *Observer) startLocked() (bool, error) {
	if o.Running() {
		return false, nil
	}

	cfg := o.Config()
	if err := cfg.ValidateDirectory(); err != nil {
		return false, err
	}

	watcher := NewPathWatcher(cfg.Directory, o.deliver, o.logger)
	if err := watcher.Start(); err != nil {
		return false, &domain.ConfigurationError{Field: "directory", Value: cfg.Directory, Reason: "cannot watch", Err: err}
	}

	o.stateMu.Lock()
	o.watcher = watcher
	err := o.lifecycle.Transition(EventStart)
	o.stateMu.Unlock()
	if err != nil {
		_ = watcher.Close()
		return false, fmt.Errorf("start observer %s: %w", o.name, err)
	}

	o.logger.Info("watching files", "directory", cfg.Directory, "suffix", cfg.Suffix)
	return true, nil
}

func (o *Observer) stopLocked() bool {
	o.stateMu.Lock()
	if !o.lifecycle.Running() {
		o.stateMu.Unlock()
		o.logger.Info("observer not running")
		return false
	}
	watcher := o.watcher
	o.watcher = nil
	o.stateMu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			o.logger.Warn("watcher close failed", "error", err)
		}
	}

	o.stateMu.Lock()
	if err := o.lifecycle.Transition(EventStop); err != nil {
		o.logger.Warn("lifecycle transition failed", "error", err)
	}
	o.stateMu.Unlock()

	o.logger.Info("stopped watching")
	return true
}

func (o *Observer) deliver(kind events.Kind, path string) {
	if !o.filter.Matches(path) {
		return
	}

	event := events.NewFileEvent(kind, o.name, path)
	o.logger.Debug("dispatching file event", "kind", kind, "path", event.Path, "event_id", event.ID)

	if err := o.dispatcher.Dispatch(o.ctx, event); err != nil {
		o.logger.Error("file event handlers failed", "kind", kind, "path", event.Path, "error", err)
		if o.onError != nil {
			o.onError(err)
		}
	}
}

func cloneConfig(cfg WatchConfig) WatchConfig {
	cfg.Exclude = append([]string(nil), cfg.Exclude...)
	return cfg
}
