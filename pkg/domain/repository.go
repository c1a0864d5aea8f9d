package domain

import (
	"context"

	"github.com/felixgeelhaar/autotag/pkg/domain/metadata"
)

// TemplateRepository reads metadata templates from disk.
type TemplateRepository interface {
	// ListTemplates returns the template paths in dir whose extension equals suffix, sorted.
	ListTemplates(dir, suffix string) ([]string, error)
	// LoadTemplate parses a fresh copy of the template at path.
	LoadTemplate(ctx context.Context, path string) (metadata.Metadata, error)
}

// SidecarRepository persists merged metadata next to a data file.
type SidecarRepository interface {
	SaveSidecar(ctx context.Context, path string, md metadata.Metadata) error
}

// TaggedStateRepository persists named lists of tagged files.
type TaggedStateRepository interface {
	// LoadList returns the list stored under name, creating the backing file if needed.
	LoadList(name string) ([]string, error)
	// SaveList replaces the list stored under name, leaving other keys untouched.
	SaveList(name string, items []string) error
}

// Converter turns a tagged data file into some downstream artifact.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}
