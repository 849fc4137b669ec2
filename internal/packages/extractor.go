package packages

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Extractor runs an external tool that prints a package's metadata document
// to stdout. It is only consulted when the built-in decoder fails.
type Extractor struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Enabled reports whether a command is configured
func (e *Extractor) Enabled() bool {
	return e != nil && e.Command != ""
}

// Extract runs `<command> <args...> <file>` and returns its stdout
func (e *Extractor) Extract(ctx context.Context, file string) ([]byte, error) {
	if !e.Enabled() {
		return nil, fmt.Errorf("no extractor configured")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.Args...), file)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("extractor %s: %w: %s", e.Command, err, msg)
		}
		return nil, fmt.Errorf("extractor %s: %w", e.Command, err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("extractor %s produced no output", e.Command)
	}
	return bytes.TrimPrefix(stdout.Bytes(), utf8BOM), nil
}
