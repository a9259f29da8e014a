package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/garyellow/realestate-linebot-go/internal/memory"
)

var (
	_ memory.Store  = (*MemoryStore)(nil)
	_ memory.Pruner = (*MemoryStore)(nil)
)

// MemoryStore is a memory.Store that survives restarts.
type MemoryStore struct {
	db  *DB
	now func() time.Time
}

// NewMemoryStore creates a MemoryStore on db.
func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db, now: time.Now}
}

// Append stores one message stamped with the current time.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, role memory.Role, content string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(role), content, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Messages returns the whole session log in insertion order.
func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	return s.query(ctx,
		`SELECT session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
}

// Recent returns at most n of the newest messages, oldest first.
// A non-positive n returns nothing.
func (s *MemoryStore) Recent(ctx context.Context, sessionID string, n int) ([]memory.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	msgs, err := s.query(ctx,
		`SELECT session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// Clear deletes every message of the session.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Prune deletes messages older than retention and returns how many went.
func (s *MemoryStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).UnixMilli()
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages: %w", err)
	}
	return res.RowsAffected()
}

// CountSessions returns the number of sessions with stored history.
func (s *MemoryStore) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (s *MemoryStore) query(ctx context.Context, query string, args ...any) ([]memory.Message, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []memory.Message
	for rows.Next() {
		var (
			m       memory.Message
			role    string
			created int64
		)
		if err := rows.Scan(&m.SessionID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = memory.Role(role)
		m.CreatedAt = time.UnixMilli(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
