package domain

import (
	"errors"
	"fmt"
)

// Domain errors for the tagging pipeline.
var (
	// ErrConfiguration indicates the watch configuration is invalid or points at a missing directory.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrTemplateRead indicates a template is missing, unreadable, or not valid YAML.
	ErrTemplateRead = errors.New("template read failed")

	// ErrWrite indicates a sidecar or state file could not be written.
	ErrWrite = errors.New("write failed")

	// ErrDispatch indicates a subscriber failed during event delivery.
	ErrDispatch = errors.New("event dispatch failed")

	// ErrNoTemplateSelected indicates an operation needed a template but none is selected.
	ErrNoTemplateSelected = errors.New("no template selected")

	// ErrTemplateNotFound indicates a template name did not match any known template.
	ErrTemplateNotFound = errors.New("template not found")
)

// ConfigurationError describes which configuration field is invalid.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid " + e.Field
	if e.Value != "" {
		msg += " " + fmt.Sprintf("%q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is allows errors.Is to work with ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TemplateReadError wraps a failure to load a template document.
type TemplateReadError struct {
	Path string
	Err  error
}

func (e *TemplateReadError) Error() string {
	if e.Err == nil {
		return "read template " + e.Path
	}
	return "read template " + e.Path + ": " + e.Err.Error()
}

// Is allows errors.Is to work with TemplateReadError.
func (e *TemplateReadError) Is(target error) bool {
	return target == ErrTemplateRead
}

func (e *TemplateReadError) Unwrap() error {
	return e.Err
}

// WriteError wraps a failure to persist a sidecar or state file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Err == nil {
		return "write " + e.Path
	}
	return "write " + e.Path + ": " + e.Err.Error()
}

// Is allows errors.Is to work with WriteError.
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
