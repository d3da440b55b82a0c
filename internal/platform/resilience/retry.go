package resilience

import (
	"context"
	"time"
)

// RetryPolicy retries with linear backoff: attempt n waits (n+1)*BaseDelay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Retryable decides whether an error is worth another attempt. nil
	// retries every error.
	Retryable func(error) bool
}

// Retry runs fn until it succeeds, returns a non-retryable error, exhausts
// MaxRetries or ctx ends. The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxRetries {
			break
		}

		timer := time.NewTimer(time.Duration(attempt+1) * policy.BaseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
