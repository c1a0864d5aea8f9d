// Package events defines filesystem events and their synchronous dispatch.
package events

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what happened to a file.
type Kind string

const (
	KindCreated Kind = "created"
	KindDeleted Kind = "deleted"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCreated || k == KindDeleted
}

// FileEvent is a single filtered filesystem notification.
type FileEvent struct {
	ID         string
	Kind       Kind
	Path       string
	Source     string
	OccurredAt time.Time
}

// NewFileEvent creates an event with a fresh ID and an absolute path.
func NewFileEvent(kind Kind, source, path string) FileEvent {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return FileEvent{
		ID:         uuid.New().String(),
		Kind:       kind,
		Path:       path,
		Source:     source,
		OccurredAt: time.Now(),
	}
}
