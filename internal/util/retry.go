package util

import (
	"context"
	"fmt"
	"time"
)

// Retry calls fn until it succeeds, giving up after maxAttempts. The wait
// between attempts starts at baseDelay and doubles each time. A context
// cancellation during a wait wins over further attempts; the terminal error
// wraps the last failure so callers can still match it with errors.Is.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
