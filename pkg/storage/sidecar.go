package storage

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/metadata"
	"github.com/felixgeelhaar/fortify/retry"
)

// SaveSidecar serializes md as YAML and replaces whatever is at path.
func (r *FilesystemRepository) SaveSidecar(ctx context.Context, path string, md metadata.Metadata) error {
	if md == nil {
		md = metadata.Metadata{}
	}
	data, err := encodeYAML(map[string]any(md))
	if err != nil {
		return &domain.WriteError{Path: path, Err: fmt.Errorf("failed to marshal metadata: %w", err)}
	}

	retryer := retry.New[struct{}](r.retryConfig)
	var lastErr error
	_, err = retryer.Do(ctx, func(ctx context.Context) (struct{}, error) {
		lastErr = AtomicWriteFile(path, data, sidecarPerm)
		return struct{}{}, lastErr
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return &domain.WriteError{Path: path, Err: lastErr}
	}
	return nil
}
