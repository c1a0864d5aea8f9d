package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/events"
)

// DefaultTaggedListName is the state-file key used when none is configured.
const DefaultTaggedListName = "TaggedFiles"

// TaggedFileRegistry is an ordered set of tagged file paths persisted under
// one key of a shared state file. Every mutation rewrites the file.
type TaggedFileRegistry struct {
	repo   domain.TaggedStateRepository
	name   string
	logger *slog.Logger

	mu    sync.Mutex
	files []string
}

// NewTaggedFileRegistry creates a registry seeded with initial and reconciles
// it with the backing file.
func NewTaggedFileRegistry(repo domain.TaggedStateRepository, name string, logger *slog.Logger, initial ...string) (*TaggedFileRegistry, error) {
	if name == "" {
		name = DefaultTaggedListName
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &TaggedFileRegistry{
		repo:   repo,
		name:   name,
		logger: logger,
		files:  union(nil, initial),
	}
	if err := r.Sync(); err != nil {
		return nil, err
	}
	return r, nil
}

// Name returns the state-file key for this registry.
func (r *TaggedFileRegistry) Name() string {
	return r.name
}

// Files returns the tagged paths in insertion order.
func (r *TaggedFileRegistry) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

// Contains reports whether path is tagged.
func (r *TaggedFileRegistry) Contains(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.files, path)
}

// Add appends path and persists. It returns false when path was already present.
func (r *TaggedFileRegistry) Add(path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.files, path) {
		return false, nil
	}
	next := append(append([]string(nil), r.files...), path)
	if err := r.repo.SaveList(r.name, next); err != nil {
		return false, err
	}
	r.files = next
	r.logger.Debug("tagged file added", "list", r.name, "path", path)
	return true, nil
}

// Remove drops path and persists. It returns false when path was not present.
func (r *TaggedFileRegistry) Remove(path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.files, path)
	if i < 0 {
		return false, nil
	}
	next := slices.Delete(append([]string(nil), r.files...), i, i+1)
	if err := r.repo.SaveList(r.name, next); err != nil {
		return false, err
	}
	r.files = next
	r.logger.Debug("tagged file removed", "list", r.name, "path", path)
	return true, nil
}

// Sync merges the stored list with the in-memory one and persists the union.
// Stored entries keep their order and come first.
func (r *TaggedFileRegistry) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.repo.LoadList(r.name)
	if err != nil {
		return fmt.Errorf("load tagged list %s: %w", r.name, err)
	}
	merged := union(stored, r.files)
	if err := r.repo.SaveList(r.name, merged); err != nil {
		return err
	}
	r.files = merged
	return nil
}

// HandleCreated records the file of a created event.
func (r *TaggedFileRegistry) HandleCreated(_ context.Context, event events.FileEvent) error {
	_, err := r.Add(event.Path)
	return err
}

// HandleDeleted forgets the file of a deleted event.
func (r *TaggedFileRegistry) HandleDeleted(_ context.Context, event events.FileEvent) error {
	_, err := r.Remove(event.Path)
	return err
}

func union(first, second []string) []string {
	out := make([]string, 0, len(first)+len(second))
	seen := make(map[string]struct{}, len(first)+len(second))
	for _, list := range [][]string{first, second} {
		for _, item := range list {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
