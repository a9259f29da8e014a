package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/metrics"
)

// SessionConfig configures a SessionLimiter.
type SessionConfig struct {
	// Name labels dropped requests in metrics.
	Name string

	Burst      float64
	RefillRate float64 // tokens per second

	// CleanupPeriod controls how often idle sessions are forgotten.
	// Zero disables the cleanup goroutine.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// SessionLimiter keeps one bucket per session ID so a single chatty
// conversation cannot starve the shared language model quota.
type SessionLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*Limiter
	cfg     SessionConfig
	stopCh  chan struct{}
	once    sync.Once
}

// NewSessionLimiter creates a SessionLimiter. Call Stop when done.
func NewSessionLimiter(cfg SessionConfig) *SessionLimiter {
	sl := &SessionLimiter{
		buckets: make(map[string]*Limiter),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go sl.cleanupLoop()
	}
	return sl
}

// Allow reports whether the session may run another query. An empty
// session ID is never limited.
func (sl *SessionLimiter) Allow(sessionID string) bool {
	if sessionID == "" {
		return true
	}
	if sl.bucket(sessionID).Allow() {
		return true
	}
	sl.cfg.Metrics.RecordRateLimiterDrop(sl.cfg.Name)
	return false
}

func (sl *SessionLimiter) bucket(sessionID string) *Limiter {
	sl.mu.RLock()
	b, ok := sl.buckets[sessionID]
	sl.mu.RUnlock()
	if ok {
		return b
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if b, ok = sl.buckets[sessionID]; ok {
		return b
	}
	b = New(sl.cfg.Burst, sl.cfg.RefillRate)
	sl.buckets[sessionID] = b
	return b
}

// Available returns the tokens left for a session; unknown sessions
// report a full bucket.
func (sl *SessionLimiter) Available(sessionID string) float64 {
	sl.mu.RLock()
	b, ok := sl.buckets[sessionID]
	sl.mu.RUnlock()
	if !ok {
		return sl.cfg.Burst
	}
	return b.Available()
}

// ActiveCount returns the number of tracked sessions.
func (sl *SessionLimiter) ActiveCount() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return len(sl.buckets)
}

// Sweep forgets sessions whose bucket has refilled.
func (sl *SessionLimiter) Sweep() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	for id, b := range sl.buckets {
		if b.IsFull() {
			delete(sl.buckets, id)
		}
	}
}

func (sl *SessionLimiter) cleanupLoop() {
	ticker := time.NewTicker(sl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sl.stopCh:
			return
		case <-ticker.C:
			sl.Sweep()
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (sl *SessionLimiter) Stop() {
	sl.once.Do(func() { close(sl.stopCh) })
}
