package genai

import (
	"context"
	"math/rand/v2"
	"time"
)

// CalculateBackoff returns the delay before retry number attempt using
// full jitter: random(0, min(max, initial*2^(attempt-1))).
func CalculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 || initial <= 0 {
		return 0
	}
	delay := initial << (attempt - 1)
	if delay > max || delay <= 0 {
		delay = max
	}
	if delay <= 0 {
		return 0
	}
	return rand.N(delay)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasSufficientBudget reports whether ctx leaves at least required time.
func HasSufficientBudget(ctx context.Context, required time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= required
}
