package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/autotag/pkg/domain"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return NewCLIError(
			"invalid configuration",
			fmt.Sprintf("Check '%s' in autotag.yaml or the matching flag", cfgErr.Field),
			err,
		)
	}

	var readErr *domain.TemplateReadError
	if errors.As(err, &readErr) {
		return NewCLIError(
			"template could not be read",
			fmt.Sprintf("Check that %s exists and is a YAML mapping", readErr.Path),
			err,
		)
	}

	var writeErr *domain.WriteError
	if errors.As(err, &writeErr) {
		return NewCLIError(
			"write failed",
			fmt.Sprintf("Check permissions and free space for %s", writeErr.Path),
			err,
		)
	}

	switch {
	case errors.Is(err, domain.ErrNoTemplateSelected):
		return NewCLIError("no template selected", "Add a template to the templates directory or set templates.selected", err)
	case errors.Is(err, domain.ErrTemplateNotFound):
		return NewCLIError("template not found", "Run 'autotag templates list' to see available templates", err)
	case errors.Is(err, domain.ErrDispatch):
		return NewCLIError("event handlers failed", "Run with --log-level debug for details", err)
	}

	return err
}
