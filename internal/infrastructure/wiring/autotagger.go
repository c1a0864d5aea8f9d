// Package wiring assembles the tagging pipeline from configuration.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/felixgeelhaar/autotag/internal/infrastructure/config"
	"github.com/felixgeelhaar/autotag/internal/infrastructure/converter"
	"github.com/felixgeelhaar/autotag/internal/infrastructure/watch"
	"github.com/felixgeelhaar/autotag/pkg/application"
	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/events"
	"github.com/felixgeelhaar/autotag/pkg/domain/metadata"
	"github.com/felixgeelhaar/autotag/pkg/storage"
)

// Observer names, used as the event source.
const (
	DataObserver     = "data"
	TemplateObserver = "templates"
)

// Option configures an AutoTagger.
type Option func(*options)

type options struct {
	updater metadata.Updater
	onError func(error)
	repo    *storage.FilesystemRepository
}

// WithUpdater replaces the updater built from the tagging config section.
func WithUpdater(u metadata.Updater) Option {
	return func(o *options) {
		o.updater = u
	}
}

// WithErrorHandler receives handler failures from the data observer.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithRepository overrides the filesystem repository.
func WithRepository(repo *storage.FilesystemRepository) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// AutoTagger holds the data observer, template registry, tagging service and
// optional tagged-file registry, wired together.
type AutoTagger struct {
	logger *slog.Logger
	repo   *storage.FilesystemRepository

	observer         *watch.Observer
	templateObserver *watch.Observer
	templates        *application.TemplateRegistry
	tagging   *application.TaggingService
	tagged    *application.TaggedFileRegistry

	mu  sync.Mutex
	cfg config.Config
}

// NewAutoTagger builds the pipeline from cfg. Nothing is watched until Start.
func NewAutoTagger(cfg config.Config, logger *slog.Logger, opts ...Option) (*AutoTagger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	repo := o.repo
	if repo == nil {
		repo = storage.NewFilesystemRepository(cfg.Tagged.StateFile)
	}

	templateObserver, err := watch.NewObserver(TemplateObserver, watch.WatchConfig{
		Directory: cfg.Templates.Directory,
		Suffix:    cfg.Templates.Suffix,
	}, watch.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	templateOpts := []application.TemplateOption{
		application.WithTemplateWatcher(templateObserver),
		application.WithTemplateValidator(metadata.NewValidator(cfg.Templates.Strict)),
		application.WithTemplateLogger(logger.With("registry", "templates")),
	}
	if cfg.Templates.Selected != "" {
		templateOpts = append(templateOpts, application.WithInitialTemplate(cfg.Templates.Selected))
	}
	templates, err := application.NewTemplateRegistry(cfg.Templates.Directory, cfg.Templates.Suffix, repo, templateOpts...)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, &domain.ConfigurationError{Field: "templates.selected", Value: cfg.Templates.Selected, Err: err}
		}
		return nil, &domain.ConfigurationError{Field: "templates.directory", Value: cfg.Templates.Directory, Err: err}
	}

	observerOpts := []watch.Option{watch.WithLogger(logger)}
	if o.onError != nil {
		observerOpts = append(observerOpts, watch.WithErrorHandler(o.onError))
	}
	observer, err := watch.NewObserver(DataObserver, cfg.WatchConfig(), observerOpts...)
	if err != nil {
		return nil, err
	}

	updater := o.updater
	if updater == nil {
		updater = &metadata.DefaultUpdater{
			Static:     cfg.Tagging.StaticFields,
			TimeFormat: cfg.Tagging.TimeFormat,
		}
	}
	tagging := application.NewTaggingService(templates, repo, observer.Suffix,
		application.WithUpdater(updater),
		application.WithTaggingLogger(logger))

	a := &AutoTagger{
		logger:           logger,
		repo:             repo,
		observer:         observer,
		templateObserver: templateObserver,
		templates:        templates,
		tagging:          tagging,
		cfg:              cfg,
	}

	observer.Dispatcher().Subscribe(events.NewLoggingHandler(logger).Registration())
	observer.OnCreated("tagger", tagging.Handle)

	if cfg.Tagged.Enabled {
		tagged, err := application.NewTaggedFileRegistry(repo, cfg.Tagged.ListName, logger)
		if err != nil {
			return nil, err
		}
		a.tagged = tagged
		observer.OnCreated("tagged-files", a.skipSidecars(tagged.HandleCreated))
		observer.OnDeleted("tagged-files", a.skipSidecars(tagged.HandleDeleted))
	}

	return a, nil
}

// Start starts the template watcher and then the data watcher.
func (a *AutoTagger) Start() error {
	if err := a.templates.Start(); err != nil {
		return err
	}
	if _, err := a.observer.Start(); err != nil {
		a.templates.Close()
		return err
	}
	return nil
}

// Stop stops both watchers. An in-flight tag finishes first.
func (a *AutoTagger) Stop() {
	a.observer.Stop()
	a.templates.Close()
}

// Toggle starts both watchers when the data watcher is stopped and stops
// both otherwise. It returns whether the data watcher now runs.
func (a *AutoTagger) Toggle() (bool, error) {
	if a.observer.Running() {
		a.Stop()
		return false, nil
	}
	if err := a.Start(); err != nil {
		return false, err
	}
	return true, nil
}

// Running reports whether the data watcher is running.
func (a *AutoTagger) Running() bool {
	return a.observer.Running()
}

// SetDirectory changes the data directory.
func (a *AutoTagger) SetDirectory(dir string) error {
	if err := a.observer.SetDirectory(dir); err != nil {
		return err
	}
	a.mu.Lock()
	a.cfg.Watch.Directory = dir
	a.mu.Unlock()
	return nil
}

// SetSuffix changes the data file suffix.
func (a *AutoTagger) SetSuffix(suffix string) error {
	cfg := a.Config()
	cfg.Watch.Suffix = suffix
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := a.observer.SetSuffix(suffix); err != nil {
		return err
	}
	a.mu.Lock()
	a.cfg.Watch.Suffix = suffix
	a.mu.Unlock()
	return nil
}

// Reconfigure applies a reloaded configuration. The watch section, the
// selected template and the convert section take effect immediately; other
// sections need a restart. Each part is recorded as soon as it is applied,
// so Config always describes what is running even when a later step fails.
func (a *AutoTagger) Reconfigure(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	current := a.Config()

	if err := a.observer.Reconfigure(cfg.WatchConfig()); err != nil {
		return err
	}
	a.mu.Lock()
	a.cfg.Watch = cfg.Watch
	a.cfg.Convert = cfg.Convert
	a.mu.Unlock()

	if cfg.Templates.Selected != "" && cfg.Templates.Selected != current.Templates.Selected {
		if err := a.templates.Select(cfg.Templates.Selected); err != nil {
			return err
		}
		a.mu.Lock()
		a.cfg.Templates.Selected = cfg.Templates.Selected
		a.mu.Unlock()
	}

	if pending := restartOnlyChanges(current, cfg); len(pending) > 0 {
		a.logger.Warn("configuration change requires a restart to take full effect", "sections", pending)
	}
	return nil
}

// restartOnlyChanges names the changed settings that Reconfigure cannot apply.
func restartOnlyChanges(current, next config.Config) []string {
	var changed []string
	if next.Templates.Directory != current.Templates.Directory || next.Templates.Suffix != current.Templates.Suffix ||
		next.Templates.Strict != current.Templates.Strict {
		changed = append(changed, "templates")
	}
	if next.Tagging.TimeFormat != current.Tagging.TimeFormat ||
		!reflect.DeepEqual(next.Tagging.StaticFields, current.Tagging.StaticFields) {
		changed = append(changed, "tagging")
	}
	if next.Tagged != current.Tagged {
		changed = append(changed, "tagged")
	}
	if next.Log != current.Log {
		changed = append(changed, "log")
	}
	return changed
}

// Config returns the configuration currently in effect.
func (a *AutoTagger) Config() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Register subscribes fn to data observer events of kind.
func (a *AutoTagger) Register(kind events.Kind, name string, fn events.HandlerFunc) events.SubscriptionID {
	return a.observer.Dispatcher().Register(kind, name, fn)
}

// Unregister removes a subscription made with Register.
func (a *AutoTagger) Unregister(kind events.Kind, id events.SubscriptionID) bool {
	return a.observer.Unsubscribe(kind, id)
}

// TagFile tags one existing file and records it, as if it had just been created.
func (a *AutoTagger) TagFile(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	sidecar, err := a.tagging.Tag(ctx, abs)
	if err != nil {
		return "", err
	}
	if a.tagged != nil {
		if _, err := a.tagged.Add(abs); err != nil {
			return sidecar, err
		}
	}
	return sidecar, nil
}

// ConvertService builds a convert service from the convert config section.
// It fails when neither a command nor a builtin converter is configured.
func (a *AutoTagger) ConvertService() (*application.ConvertService, error) {
	cfg := a.Config()
	conv, err := converter.New(cfg.Convert.Command, cfg.Convert.Args, cfg.Convert.Builtin)
	if err != nil {
		return nil, err
	}
	return application.NewConvertService(conv, a.tagged, cfg.Convert.Timeout, a.logger,
		application.WithWorkers(cfg.Convert.Workers)), nil
}

// Observer returns the data observer.
func (a *AutoTagger) Observer() *watch.Observer {
	return a.observer
}

// Templates returns the template registry.
func (a *AutoTagger) Templates() *application.TemplateRegistry {
	return a.templates
}

// Tagging returns the tagging service.
func (a *AutoTagger) Tagging() *application.TaggingService {
	return a.tagging
}

// Tagged returns the tagged-file registry, or nil when disabled.
func (a *AutoTagger) Tagged() *application.TaggedFileRegistry {
	return a.tagged
}

// Repository returns the filesystem repository.
func (a *AutoTagger) Repository() *storage.FilesystemRepository {
	return a.repo
}

func (a *AutoTagger) skipSidecars(fn events.HandlerFunc) events.HandlerFunc {
	return func(ctx context.Context, event events.FileEvent) error {
		if metadata.IsSidecar(event.Path, a.observer.Suffix()) {
			return nil
		}
		return fn(ctx, event)
	}
}
