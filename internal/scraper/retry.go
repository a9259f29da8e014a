package scraper

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// permanentError marks a failure that retrying cannot fix, such as a 404.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent wraps err so RetryWithBackoff gives up immediately.
func permanent(err error) error {
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn until it succeeds, returns a permanent error,
// or maxRetries retries are spent. maxRetries 0 means a single attempt.
//
// The delay before retry n is initialDelay * 2^(n-1) with ±25% jitter, so
// with initialDelay=1s the waits are roughly 1s, 2s, 4s.
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.Unwrap()
		}
		if attempt == maxRetries {
			break
		}

		delay := time.Duration(float64(initialDelay) * math.Pow(2, float64(attempt)))
		if half := int64(delay) / 2; half > 0 {
			delay = delay - delay/4 + time.Duration(rand.Int64N(half))
		}

		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// Sleep waits for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
