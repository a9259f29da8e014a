package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Parallel()
	l := New(10, 5)
	if l.maxTokens != 10 || l.tokens != 10 {
		t.Errorf("New(10, 5) = max %v tokens %v, want a full bucket of 10", l.maxTokens, l.tokens)
	}
	if l.refillRate != 5 {
		t.Errorf("refillRate = %v, want 5", l.refillRate)
	}
}

func TestAllow(t *testing.T) {
	t.Parallel()
	t.Run("drains burst", func(t *testing.T) {
		t.Parallel()
		l := New(3, 0)
		for i := range 3 {
			if !l.Allow() {
				t.Fatalf("Allow() = false on attempt %d", i+1)
			}
		}
		if l.Allow() {
			t.Error("Allow() = true on an empty bucket")
		}
	})

	t.Run("refills over time", func(t *testing.T) {
		t.Parallel()
		l := New(1, 100)
		l.Allow()
		time.Sleep(30 * time.Millisecond)
		if !l.Allow() {
			t.Error("Allow() = false after refill")
		}
	})
}

func TestWait(t *testing.T) {
	t.Parallel()
	t.Run("immediate with tokens", func(t *testing.T) {
		t.Parallel()
		l := New(2, 1)
		start := time.Now()
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if time.Since(start) > 10*time.Millisecond {
			t.Error("Wait() blocked with tokens available")
		}
	})

	t.Run("blocks until refill", func(t *testing.T) {
		t.Parallel()
		l := New(1, 50)
		l.Allow()
		start := time.Now()
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
			t.Errorf("Wait() took %v, want about 20ms", elapsed)
		}
	})

	t.Run("context deadline", func(t *testing.T) {
		t.Parallel()
		l := New(0, 0.1)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
		}
	})

	t.Run("zero refill still honours context", func(t *testing.T) {
		t.Parallel()
		l := New(0, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); err == nil {
			t.Error("Wait() succeeded on a bucket that never refills")
		}
	})
}

func TestAvailableAndIsFull(t *testing.T) {
	t.Parallel()
	l := New(10, 0)
	if !l.IsFull() {
		t.Error("IsFull() = false for a new limiter")
	}
	l.Allow()
	l.Allow()
	if got := l.Available(); got != 8 {
		t.Errorf("Available() = %v, want 8", got)
	}
	if l.IsFull() {
		t.Error("IsFull() = true after consuming")
	}
}

func TestConcurrentAllow(t *testing.T) {
	t.Parallel()
	l := New(100, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range 50 {
		wg.Go(func() {
			for range 3 {
				if l.Allow() {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}
		})
	}
	wg.Wait()

	if granted != 100 {
		t.Errorf("granted %d requests, want 100", granted)
	}
}
