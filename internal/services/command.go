package services

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool and returns its standard output.
// Stdin may be nil.
type CommandRunner func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)

// RunCommand is the default CommandRunner. Combined stderr is folded into the
// returned error so tool diagnostics reach the log.
func RunCommand(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdin = stdin
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(string(out))
		}
		return out, fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return out, nil
}
