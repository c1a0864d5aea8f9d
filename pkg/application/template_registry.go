package application

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/events"
	"github.com/felixgeelhaar/autotag/pkg/domain/metadata"
)

// DirectoryWatcher is the part of a file observer the registries need.
type DirectoryWatcher interface {
	Start() (bool, error)
	Stop() bool
	OnCreated(name string, handler events.HandlerFunc) events.SubscriptionID
	OnDeleted(name string, handler events.HandlerFunc) events.SubscriptionID
}

// TemplateOption configures a TemplateRegistry.
type TemplateOption func(*TemplateRegistry)

// WithInitialTemplate selects a template by name, stem or path after the first scan.
func WithInitialTemplate(name string) TemplateOption {
	return func(r *TemplateRegistry) {
		r.initial = name
	}
}

// WithTemplateWatcher keeps the template list live from watcher events.
func WithTemplateWatcher(w DirectoryWatcher) TemplateOption {
	return func(r *TemplateRegistry) {
		r.watcher = w
	}
}

// WithTemplateValidator validates every loaded template document.
func WithTemplateValidator(v *metadata.Validator) TemplateOption {
	return func(r *TemplateRegistry) {
		r.validator = v
	}
}

// WithTemplateLogger sets the logger.
func WithTemplateLogger(logger *slog.Logger) TemplateOption {
	return func(r *TemplateRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// TemplateRegistry tracks the selectable templates in a directory and which
// one is selected. It is touched by both the template watcher and the data
// watcher, so all state is guarded.
type TemplateRegistry struct {
	dir       string
	suffix    string
	repo      domain.TemplateRepository
	validator *metadata.Validator
	watcher   DirectoryWatcher
	logger    *slog.Logger
	initial   string

	mu        sync.RWMutex
	templates []string
	selected  string
}

// NewTemplateRegistry scans dir for templates and applies the initial selection.
func NewTemplateRegistry(dir, suffix string, repo domain.TemplateRepository, opts ...TemplateOption) (*TemplateRegistry, error) {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	r := &TemplateRegistry{
		dir:       dir,
		suffix:    suffix,
		repo:      repo,
		validator: metadata.NewValidator(false),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Rescan(); err != nil {
		return nil, err
	}

	if r.initial != "" {
		if err := r.Select(r.initial); err != nil {
			return nil, err
		}
	} else {
		r.mu.Lock()
		if len(r.templates) > 0 {
			r.selected = r.templates[0]
		}
		r.mu.Unlock()
	}

	if r.watcher != nil {
		r.watcher.OnCreated("template-registry", r.handleCreated)
		r.watcher.OnDeleted("template-registry", r.handleDeleted)
	}
	return r, nil
}

// Start begins watching the template directory. Without a watcher it is a no-op.
func (r *TemplateRegistry) Start() error {
	if r.watcher == nil {
		return nil
	}
	_, err := r.watcher.Start()
	return err
}

// Close stops watching the template directory.
func (r *TemplateRegistry) Close() {
	if r.watcher != nil {
		r.watcher.Stop()
	}
}

// Directory returns the template directory.
func (r *TemplateRegistry) Directory() string {
	return r.dir
}

// Templates returns the selectable template paths in sorted order.
func (r *TemplateRegistry) Templates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.templates...)
}

// Selected returns the selected template path.
func (r *TemplateRegistry) Selected() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected == "" {
		return "", domain.ErrNoTemplateSelected
	}
	return r.selected, nil
}

// Select chooses a template by path, file name or stem.
func (r *TemplateRegistry) Select(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, ok := r.resolveLocked(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	r.selected = path
	r.logger.Info("template selected", "template", path)
	return nil
}

// Metadata parses a fresh copy of the selected template.
func (r *TemplateRegistry) Metadata(ctx context.Context) (metadata.Metadata, error) {
	path, err := r.Selected()
	if err != nil {
		return nil, err
	}
	return r.Load(ctx, path)
}

// Load parses and validates the template at path.
func (r *TemplateRegistry) Load(ctx context.Context, path string) (metadata.Metadata, error) {
	md, err := r.repo.LoadTemplate(ctx, path)
	if err != nil {
		return nil, err
	}
	if r.validator != nil {
		if err := r.validator.Validate(md); err != nil {
			return nil, &domain.TemplateReadError{Path: path, Err: err}
		}
	}
	return md, nil
}

// Rescan refreshes the template list from disk. A selection that no longer
// exists falls back to the first template, or to none.
func (r *TemplateRegistry) Rescan() error {
	templates, err := r.repo.ListTemplates(r.dir, r.suffix)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates = templates
	if r.selected != "" && !slices.Contains(templates, r.selected) {
		previous := r.selected
		r.selected = ""
		if len(templates) > 0 {
			r.selected = templates[0]
		}
		r.logger.Info("selected template removed", "template", previous, "selected", r.selected)
	}
	return nil
}

func (r *TemplateRegistry) handleCreated(_ context.Context, event events.FileEvent) error {
	if err := r.Rescan(); err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(event.Path), r.suffix)

	r.mu.Lock()
	defer r.mu.Unlock()

	if match := matchStem(r.templates, stem, r.suffix); match != "" {
		r.selected = match
		r.logger.Info("template added", "template", match)
	}
	return nil
}

func (r *TemplateRegistry) handleDeleted(_ context.Context, event events.FileEvent) error {
	r.logger.Info("template removed", "template", event.Path)
	return r.Rescan()
}

func (r *TemplateRegistry) resolveLocked(name string) (string, bool) {
	for _, path := range r.templates {
		base := filepath.Base(path)
		if path == name || base == name || strings.TrimSuffix(base, r.suffix) == name {
			return path, true
		}
	}
	if abs, err := filepath.Abs(name); err == nil && slices.Contains(r.templates, abs) {
		return abs, true
	}
	return "", false
}

// matchStem picks the template for a newly created file. An exact stem match
// wins; otherwise the first sorted template whose name contains the stem.
func matchStem(templates []string, stem, suffix string) string {
	if stem == "" {
		return ""
	}
	first := ""
	for _, path := range templates {
		candidate := strings.TrimSuffix(filepath.Base(path), suffix)
		if candidate == stem {
			return path
		}
		if first == "" && strings.Contains(candidate, stem) {
			first = path
		}
	}
	return first
}
