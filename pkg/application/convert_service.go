package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/autotag/pkg/domain"
)

// DefaultConvertTimeout bounds a single conversion.
const DefaultConvertTimeout = 5 * time.Minute

// ConvertResult is the outcome of converting one tagged file.
type ConvertResult struct {
	Path     string
	Artifact string
	Removed  bool
	Err      error
}

// ConvertOption configures a ConvertService.
type ConvertOption func(*ConvertService)

// WithWorkers sets how many conversions may run at once. Values below one
// mean one.
func WithWorkers(n int) ConvertOption {
	return func(s *ConvertService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// ConvertService hands tagged files to a converter.
type ConvertService struct {
	converter domain.Converter
	registry  *TaggedFileRegistry
	timeout   time.Duration
	workers   int
	logger    *slog.Logger
}

// NewConvertService creates a convert service. registry may be nil, in which
// case nothing is removed after conversion.
func NewConvertService(converter domain.Converter, registry *TaggedFileRegistry, d time.Duration, logger *slog.Logger, opts ...ConvertOption) *ConvertService {
	if d <= 0 {
		d = DefaultConvertTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &ConvertService{converter: converter, registry: registry, timeout: d, workers: 1, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConvertAll converts each path and returns the results in input order. With
// one worker the conversions run in order. A failure is recorded in its
// result and does not stop the others; cancelling ctx does.
func (s *ConvertService) ConvertAll(ctx context.Context, paths []string, removeOnSuccess bool) []ConvertResult {
	results := make([]ConvertResult, len(paths))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = s.convert(ctx, path, removeOnSuccess)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *ConvertService) convert(ctx context.Context, path string, removeOnSuccess bool) ConvertResult {
	if err := ctx.Err(); err != nil {
		return ConvertResult{Path: path, Err: err}
	}

	t := timeout.New[string](timeout.Config{DefaultTimeout: s.timeout})
	artifact, err := t.Execute(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.converter.Convert(ctx, path)
	})
	result := ConvertResult{Path: path, Artifact: artifact, Err: err}
	if err != nil {
		s.logger.Error("conversion failed", "path", path, "error", err)
		return result
	}
	s.logger.Info("converted file", "path", path, "artifact", artifact)

	if removeOnSuccess && s.registry != nil {
		removed, err := s.registry.Remove(path)
		result.Removed = removed
		if err != nil {
			result.Err = err
		}
	}
	return result
}
