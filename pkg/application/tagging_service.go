package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/events"
	"github.com/felixgeelhaar/autotag/pkg/domain/metadata"
)

// MetadataSource yields a fresh metadata document for each tagging.
type MetadataSource interface {
	Metadata(ctx context.Context) (metadata.Metadata, error)
}

// TaggingOption configures a TaggingService.
type TaggingOption func(*TaggingService)

// WithUpdater replaces the default time-stamping updater.
func WithUpdater(u metadata.Updater) TaggingOption {
	return func(s *TaggingService) {
		if u != nil {
			s.updater = u
		}
	}
}

// WithTaggingLogger sets the logger.
func WithTaggingLogger(logger *slog.Logger) TaggingOption {
	return func(s *TaggingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// TaggingService writes a metadata sidecar for each data file it is given.
type TaggingService struct {
	source   MetadataSource
	sidecars domain.SidecarRepository
	suffix   func() string
	updater  metadata.Updater
	logger   *slog.Logger

	tagged atomic.Uint64
	failed atomic.Uint64
}

// NewTaggingService creates a tagging service. suffix is read on every call
// so a suffix change on the data observer is picked up immediately.
func NewTaggingService(source MetadataSource, sidecars domain.SidecarRepository, suffix func() string, opts ...TaggingOption) *TaggingService {
	s := &TaggingService{
		source:   source,
		sidecars: sidecars,
		suffix:   suffix,
		updater:  metadata.NewDefaultUpdater(nil),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tag merges the selected template into a fresh document for path and writes
// it to the sidecar location, overwriting any existing sidecar.
func (s *TaggingService) Tag(ctx context.Context, path string) (string, error) {
	sidecar, err := s.tag(ctx, path)
	if err != nil {
		s.failed.Add(1)
		return "", err
	}
	s.tagged.Add(1)
	s.logger.Info("tagged file", "path", path, "sidecar", sidecar)
	return sidecar, nil
}

func (s *TaggingService) tag(ctx context.Context, path string) (string, error) {
	md, err := s.source.Metadata(ctx)
	if err != nil {
		return "", err
	}

	md, err = s.updater.Update(md, path)
	if err != nil {
		return "", fmt.Errorf("update metadata for %s: %w", path, err)
	}

	sidecar := metadata.SidecarPath(path, s.suffix())
	if err := s.sidecars.SaveSidecar(ctx, sidecar, md); err != nil {
		return "", err
	}
	return sidecar, nil
}

// Handle tags the file named by a created event. Sidecars are skipped so a
// ".yaml" suffix does not tag its own output.
func (s *TaggingService) Handle(ctx context.Context, event events.FileEvent) error {
	if event.Kind != events.KindCreated {
		return nil
	}
	if metadata.IsSidecar(event.Path, s.suffix()) {
		s.logger.Debug("skipping sidecar", "path", event.Path)
		return nil
	}
	_, err := s.Tag(ctx, event.Path)
	return err
}

// Stats returns how many files were tagged and how many attempts failed.
func (s *TaggingService) Stats() (tagged, failed uint64) {
	return s.tagged.Load(), s.failed.Load()
}
