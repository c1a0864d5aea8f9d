package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"
)

// LoadList returns the list stored under name in the state file. A missing
// state file is created with an empty list for name first.
func (r *FilesystemRepository) LoadList(name string) ([]string, error) {
	doc, err := r.loadStateDocument(name)
	if err != nil {
		return nil, err
	}
	return toStringList(doc[name]), nil
}

// SaveList replaces the list stored under name and rewrites the whole state
// file. Keys belonging to other lists are kept as they were read.
func (r *FilesystemRepository) SaveList(name string, items []string) error {
	doc, err := r.loadStateDocument(name)
	if err != nil {
		return err
	}
	if items == nil {
		items = []string{}
	}
	doc[name] = items
	return r.writeStateDocument(doc)
}

func (r *FilesystemRepository) loadStateDocument(name string) (map[string]any, error) {
	if err := r.ensureStateFile(name); err != nil {
		return nil, err
	}

	// #nosec G304 -- state file path is configured by the operator
	data, err := os.ReadFile(r.stateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	doc := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file %s: %w", r.stateFile, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func (r *FilesystemRepository) ensureStateFile(name string) error {
	_, err := os.Stat(r.stateFile)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat state file: %w", err)
	}
	return r.writeStateDocument(map[string]any{name: []string{}})
}

func (r *FilesystemRepository) writeStateDocument(doc map[string]any) error {
	data, err := encodeYAML(doc)
	if err != nil {
		return &domain.WriteError{Path: r.stateFile, Err: fmt.Errorf("failed to marshal state: %w", err)}
	}

	retryer := retry.New[struct{}](r.retryConfig)
	var lastErr error
	_, err = retryer.Do(context.Background(), func(ctx context.Context) (struct{}, error) {
		lastErr = AtomicWriteFile(r.stateFile, data, statePerm)
		return struct{}{}, lastErr
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return &domain.WriteError{Path: r.stateFile, Err: lastErr}
	}
	return nil
}

func toStringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}
