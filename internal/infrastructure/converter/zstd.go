package converter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// ZstdExt is appended to the data file path to name the compressed artifact.
const ZstdExt = ".zst"

// ZstdConverter compresses a data file to <path>.zst next to it. The
// original file is left in place.
type ZstdConverter struct {
	Level zstd.EncoderLevel
}

// NewZstdConverter creates a converter using the default compression level.
func NewZstdConverter() *ZstdConverter {
	return &ZstdConverter{Level: zstd.SpeedDefault}
}

// Convert writes the compressed file through a temporary file and renames it
// into place, so a cancelled conversion leaves no partial artifact.
func (c *ZstdConverter) Convert(ctx context.Context, path string) (artifact string, err error) {
	// #nosec G304 -- path comes from the tagged file list
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	artifact = path + ZstdExt
	tmp, err := os.CreateTemp(filepath.Dir(artifact), "."+filepath.Base(artifact)+".tmp")
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	level := c.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(level))
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	if _, err = io.Copy(enc, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = enc.Close()
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	if err = enc.Close(); err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), artifact); err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	return artifact, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
