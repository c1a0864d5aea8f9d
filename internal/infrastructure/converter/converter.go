package converter

import (
	"fmt"

	"github.com/felixgeelhaar/autotag/pkg/domain"
)

// Builtin converter names accepted by New.
const (
	BuiltinZstd = "zstd"
)

// New returns the converter for a command or a builtin name. A command wins
// when both are set.
func New(command string, args []string, builtin string) (domain.Converter, error) {
	if command != "" {
		return NewCommandConverter(command, args...), nil
	}
	switch builtin {
	case BuiltinZstd:
		return NewZstdConverter(), nil
	case "":
		return nil, &domain.ConfigurationError{Field: "convert.command", Reason: "no converter command configured"}
	default:
		return nil, &domain.ConfigurationError{Field: "convert.builtin", Value: builtin, Reason: fmt.Sprintf("expected %q", BuiltinZstd)}
	}
}
