package fs

import (
	"context"
	"fmt"
	"os"
	"time"
)

// WaitForFile waits for a file to exist and be non-empty, polling with exponential backoff
// capped at 500ms. Returns an error if it does not appear within maxWait.
func WaitForFile(ctx context.Context, filePath string, maxWait time.Duration) error {
	start := time.Now()
	attempt := 0
	baseDelay := 50 * time.Millisecond

	for {
		if info, err := os.Stat(filePath); err == nil && info.Size() > 0 {
			return nil
		}

		if time.Since(start) >= maxWait {
			return fmt.Errorf("timeout waiting for file %s after %v", filePath, maxWait)
		}

		delay := baseDelay * time.Duration(1<<attempt)
		if delay > 500*time.Millisecond {
			delay = 500 * time.Millisecond
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if attempt < 10 {
			attempt++
		}
	}
}
