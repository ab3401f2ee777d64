package apperrors

import (
	"context"
	"time"
)

// WithRetry runs fn with bounded backoff, retrying only store failures.
// Only call this for operations that are idempotent (deduct, release,
// threshold checks, reads). Reserve must never be blindly retried because
// it allocates.
func WithRetry(ctx context.Context, attempts int, fn func() error) error {
	backoff := 100 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !IsStore(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
