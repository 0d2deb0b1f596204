package exec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotInstalled is returned when the binary is not on PATH.
var ErrNotInstalled = errors.New("binary is not installed or not in PATH")

// Run executes bin with args and a timeout, returning combined output.
// The caller's context cancels the process as well.
func Run(ctx context.Context, timeout time.Duration, bin string, args ...string) ([]byte, error) {
	path, err := LookPath(bin)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	output, err := cmd.CombinedOutput()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("%s timed out after %v", bin, timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			return output, fmt.Errorf("%s failed: %w", bin, err)
		}
		return output, fmt.Errorf("%s failed: %w: %s", bin, err, msg)
	}
	return output, nil
}

// LookPath resolves bin on PATH.
func LookPath(bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%s: %w", bin, ErrNotInstalled)
	}
	return path, nil
}
