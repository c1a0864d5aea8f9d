package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/autotag/pkg/domain/metadata"
	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"
)

// ListTemplates returns the regular files directly inside dir whose extension
// equals suffix, sorted lexicographically.
func (r *FilesystemRepository) ListTemplates(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates in %s: %w", dir, err)
	}

	templates := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != suffix {
			continue
		}
		templates = append(templates, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(templates)
	return templates, nil
}

// LoadTemplate parses the template at path into a fresh Metadata value. An
// empty document yields an empty mapping. Reads are retried because a template
// may still be mid-write when its creation event arrives.
func (r *FilesystemRepository) LoadTemplate(ctx context.Context, path string) (metadata.Metadata, error) {
	retryer := retry.New[metadata.Metadata](r.retryConfig)

	var lastErr error
	md, err := retryer.Do(ctx, func(ctx context.Context) (metadata.Metadata, error) {
		md, err := readTemplate(path)
		lastErr = err
		return md, err
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, &domain.TemplateReadError{Path: path, Err: lastErr}
	}
	return md, nil
}

func readTemplate(path string) (metadata.Metadata, error) {
	// #nosec G304 -- template paths come from the configured template directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return metadata.Metadata{}, nil
	}

	var md metadata.Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	if md == nil {
		md = metadata.Metadata{}
	}
	return md, nil
}
