package session

import (
	"context"
	"sync"
	"time"

	"github.com/tunelease/server/internal/domain"
)

// MemoryStore is the in-process session store. Sessions are small and
// short-lived, so a single mutex over the map is sufficient; the hot path
// per range request is one lookup and one save.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.PlaySession
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.PlaySession),
	}
}

// Get returns the session for a token.
func (m *MemoryStore) Get(ctx context.Context, token string) (*domain.PlaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *sess
	return &clone, nil
}

// Save stores the session under its current token, dropping the rotated-out
// key in the same critical section.
func (m *MemoryStore) Save(ctx context.Context, sess *domain.PlaySession, prevToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prevToken != "" && prevToken != sess.Token {
		delete(m.sessions, prevToken)
	}
	clone := *sess
	m.sessions[sess.Token] = &clone
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// ReapIdle removes and returns sessions idle since the deadline.
func (m *MemoryStore) ReapIdle(ctx context.Context, deadline time.Time, limit int) ([]*domain.PlaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reaped []*domain.PlaySession
	for token, sess := range m.sessions {
		if len(reaped) >= limit {
			break
		}
		if sess.IdleSince(deadline) {
			delete(m.sessions, token)
			reaped = append(reaped, sess)
		}
	}
	return reaped, nil
}

// Len returns the number of live sessions. Used by tests and health checks.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
