package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/garyellow/realestate-linebot-go/internal/metrics"
)

func TestSessionLimiter_PerSession(t *testing.T) {
	t.Parallel()
	sl := NewSessionLimiter(SessionConfig{Name: "session", Burst: 1, RefillRate: 0.001})
	defer sl.Stop()

	assert.True(t, sl.Allow("u1"))
	assert.False(t, sl.Allow("u1"), "burst of one")
	assert.True(t, sl.Allow("u2"), "sessions are independent")
	assert.True(t, sl.Allow(""), "anonymous requests are not limited")
	assert.Equal(t, 2, sl.ActiveCount())
}

func TestSessionLimiter_RecordsDrops(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	sl := NewSessionLimiter(SessionConfig{Name: "session", Burst: 1, RefillRate: 0.001, Metrics: m})
	defer sl.Stop()

	sl.Allow("u1")
	sl.Allow("u1")
	sl.Allow("u1")

	assert.InDelta(t, 2, testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("session")), 0)
}

func TestSessionLimiter_Available(t *testing.T) {
	t.Parallel()
	sl := NewSessionLimiter(SessionConfig{Burst: 5, RefillRate: 0.001})
	defer sl.Stop()

	assert.InDelta(t, 5, sl.Available("new"), 0)
	sl.Allow("u1")
	assert.Less(t, sl.Available("u1"), 5.0)
}

func TestSessionLimiter_Sweep(t *testing.T) {
	t.Parallel()
	sl := NewSessionLimiter(SessionConfig{Burst: 2, RefillRate: 200, CleanupPeriod: 20 * time.Millisecond})
	defer sl.Stop()

	sl.Allow("u1")
	assert.Equal(t, 1, sl.ActiveCount())

	assert.Eventually(t, func() bool { return sl.ActiveCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSessionLimiter_Concurrent(t *testing.T) {
	t.Parallel()
	sl := NewSessionLimiter(SessionConfig{Burst: 1000, RefillRate: 1})
	defer sl.Stop()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Go(func() {
			id := fmt.Sprintf("user%d", i%10)
			sl.Allow(id)
			sl.Available(id)
		})
	}
	wg.Wait()
	assert.Equal(t, 10, sl.ActiveCount())
}

func TestSessionLimiter_StopTwice(t *testing.T) {
	t.Parallel()
	sl := NewSessionLimiter(SessionConfig{Burst: 1, RefillRate: 1, CleanupPeriod: time.Hour})
	sl.Stop()
	assert.NotPanics(t, sl.Stop)
}
