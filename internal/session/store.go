// Package session tracks one streaming attempt from first range request to
// terminal verdict, without trusting the client to self-report duration.
package session

import (
	"context"
	"time"

	"github.com/tunelease/server/internal/domain"
)

// Store holds live play sessions keyed by their most recently issued token.
//
// Implementations: MemoryStore (single instance, default) and RedisStore
// (shared state across instances).
type Store interface {
	// Get returns the session for a token, or domain.ErrSessionNotFound.
	Get(ctx context.Context, token string) (*domain.PlaySession, error)

	// Save stores the session under sess.Token. prevToken, when different,
	// is the rotated-out key and is removed in the same operation so only
	// the most recently issued token resolves.
	Save(ctx context.Context, sess *domain.PlaySession, prevToken string) error

	// Delete removes a session on terminal verdict.
	Delete(ctx context.Context, token string) error

	// ReapIdle removes and returns up to limit sessions whose last activity
	// is before the deadline. Used by the abandon sweeper.
	ReapIdle(ctx context.Context, deadline time.Time, limit int) ([]*domain.PlaySession, error)
}
