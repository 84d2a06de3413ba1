// Package adapters holds the shared call policy for the external
// providers: bounded timeouts, retryable-vs-permanent classification and
// bounded exponential backoff.
package adapters

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// MaxAttempts bounds retries for retryable external calls.
const MaxAttempts = 3

// DefaultCallTimeout bounds a single call to an external provider.
const DefaultCallTimeout = 15 * time.Second

// Retry runs op with bounded exponential backoff. Errors wrapped with
// Permanent stop the retry loop immediately; context cancellation
// propagates to in-flight attempts.
func Retry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(MaxAttempts),
	)
}

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsRetryable classifies a transport error: timeouts and temporary network
// failures are retryable, everything else is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
