package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/orgmark/internal/directory"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, directory.ErrUnavailable)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// withRetry calls fn until it succeeds, fails with a non-retryable
// error, or MaxRetries attempts are spent.
func withRetry[T any](ctx context.Context, log *slog.Logger, op string, backoff func(int) time.Duration, fn func() (T, error)) (T, error) {
	var out T
	var lastErr error
	for attempt := range MaxRetries {
		out, lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) {
			return out, lastErr
		}
		log.Warn("retryable store error", "op", op, "attempt", attempt, "error", lastErr)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, lastErr
}
