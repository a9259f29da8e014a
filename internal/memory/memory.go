// Package memory keeps per-session conversation history.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultHistory is how many recent messages are handed to the language
// model with each call.
const DefaultHistory = 10

// Message is one entry of a session log.
type Message struct {
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an append-only log of messages per session.
type Store interface {
	Append(ctx context.Context, sessionID string, role Role, content string) error
	// Messages returns the whole session log, oldest first.
	Messages(ctx context.Context, sessionID string) ([]Message, error)
	// Recent returns at most n of the newest messages, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// Pruner is implemented by stores that expire old history.
type Pruner interface {
	// Prune deletes messages older than retention and returns how many went.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
	CountSessions(ctx context.Context) (int, error)
}

var (
	_ Store  = (*InMemory)(nil)
	_ Pruner = (*InMemory)(nil)
)

// InMemory is a Store backed by a map. It is the default when no sqlite
// path is configured.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string][]Message
	now      func() time.Time
}

// NewInMemory creates an empty InMemory store.
func NewInMemory() *InMemory {
	return &InMemory{
		sessions: make(map[string][]Message),
		now:      time.Now,
	}
}

func (m *InMemory) Append(_ context.Context, sessionID string, role Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: m.now(),
	})
	return nil
}

func (m *InMemory) Messages(_ context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sessions[sessionID]), nil
}

func (m *InMemory) Recent(_ context.Context, sessionID string, n int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.sessions[sessionID]
	if n >= 0 && len(log) > n {
		log = log[len(log)-n:]
	}
	return slices.Clone(log), nil
}

func (m *InMemory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Prune drops messages older than retention. Sessions left empty are
// forgotten.
func (m *InMemory) Prune(_ context.Context, retention time.Duration) (int64, error) {
	cutoff := m.now().Add(-retention)
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, log := range m.sessions {
		kept := slices.DeleteFunc(log, func(msg Message) bool { return msg.CreatedAt.Before(cutoff) })
		deleted += int64(len(log) - len(kept))
		if len(kept) == 0 {
			delete(m.sessions, id)
		} else {
			m.sessions[id] = kept
		}
	}
	return deleted, nil
}

// CountSessions returns the number of sessions with history.
func (m *InMemory) CountSessions(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}
