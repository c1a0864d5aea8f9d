package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"
)

// DefaultStateFile holds tagged-file lists when no path is configured.
const DefaultStateFile = "tagger_defaults.yaml"

// File modes for written artifacts.
const (
	sidecarPerm os.FileMode = 0644
	statePerm   os.FileMode = 0600
)

// FilesystemRepository reads templates and writes sidecars and tagged-file
// state on the local filesystem.
type FilesystemRepository struct {
	stateFile   string
	retryConfig retry.Config
}

// Option configures a FilesystemRepository.
type Option func(*FilesystemRepository)

// WithRetryConfig overrides the retry policy used for reads and writes.
func WithRetryConfig(cfg retry.Config) Option {
	return func(r *FilesystemRepository) {
		r.retryConfig = cfg
	}
}

func NewFilesystemRepository(stateFile string, opts ...Option) *FilesystemRepository {
	if stateFile == "" {
		stateFile = DefaultStateFile
	}
	r := &FilesystemRepository{
		stateFile: stateFile,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StateFile returns the path of the tagged-file state document.
func (r *FilesystemRepository) StateFile() string {
	return r.stateFile
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AtomicWriteFile writes data to a temporary file and then renames it to the
// target path. This prevents partial writes from corrupting the file if the
// process crashes or is interrupted mid-write.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up temp file on any error
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
