// Package converter runs an external program to convert tagged files.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Convert waits for output pipes after the
// process was killed.
const waitDelay = time.Second

// CommandConverter invokes Command with Args and the data file path appended.
// The trimmed standard output is the artifact, usually the path it wrote.
type CommandConverter struct {
	Command string
	Args    []string
}

// NewCommandConverter creates a converter for command.
func NewCommandConverter(command string, args ...string) *CommandConverter {
	return &CommandConverter{Command: command, Args: args}
}

// Convert runs the command for path. When ctx ends the command's process
// group is killed and Convert returns within waitDelay.
func (c *CommandConverter) Convert(ctx context.Context, path string) (string, error) {
	if c.Command == "" {
		return "", errors.New("no converter command configured")
	}

	args := append(append([]string(nil), c.Args...), path)
	// #nosec G204 -- converter command is configured by the operator
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	isolateProcessGroup(cmd)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("convert %s: %w", path, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("convert %s: %w", path, err)
		}
		return "", fmt.Errorf("convert %s: %w: %s", path, err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
