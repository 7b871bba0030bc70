package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tunelease/server/internal/domain"
	redispkg "github.com/tunelease/server/pkg/redis"
)

// RedisStore holds play sessions in Redis so multiple engine instances can
// share them. Session JSON lives under the token key with a TTL; a ZSET
// indexes tokens by last-seen unix time for the idle sweeper.
type RedisStore struct {
	client *redispkg.Client
	// ttl bounds how long an unreaped session survives. Kept above the idle
	// timeout so the sweeper normally wins and writes the abandoned record;
	// the TTL is the backstop against sweeper downtime.
	ttl time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redispkg.Client, idleTimeout time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    idleTimeout * 3,
	}
}

// Get returns the session for a token.
func (r *RedisStore) Get(ctx context.Context, token string) (*domain.PlaySession, error) {
	data, err := r.client.Universal().Get(ctx, redispkg.PlaySessionKey(token)).Bytes()
	if err == goredis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess domain.PlaySession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Save stores the session under its current token and drops the rotated-out
// key, keeping the idle index in step, in one pipeline.
func (r *RedisStore) Save(ctx context.Context, sess *domain.PlaySession, prevToken string) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.Universal().TxPipeline()
	if prevToken != "" && prevToken != sess.Token {
		pipe.Del(ctx, redispkg.PlaySessionKey(prevToken))
		pipe.ZRem(ctx, redispkg.PlaySessionIdleKey(), prevToken)
	}
	pipe.Set(ctx, redispkg.PlaySessionKey(sess.Token), data, r.ttl)
	pipe.ZAdd(ctx, redispkg.PlaySessionIdleKey(), goredis.Z{
		Score:  float64(sess.LastSeenAt.Unix()),
		Member: sess.Token,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// Delete removes a session and its index entry.
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	pipe := r.client.Universal().TxPipeline()
	pipe.Del(ctx, redispkg.PlaySessionKey(token))
	pipe.ZRem(ctx, redispkg.PlaySessionIdleKey(), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// ReapIdle removes and returns sessions idle since the deadline. Tokens whose
// value already expired are dropped from the index and skipped.
func (r *RedisStore) ReapIdle(ctx context.Context, deadline time.Time, limit int) ([]*domain.PlaySession, error) {
	tokens, err := r.client.Universal().ZRangeByScore(ctx, redispkg.PlaySessionIdleKey(), &goredis.ZRangeBy{
		Min:   "0",
		Max:   fmt.Sprintf("%d", deadline.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis scan idle sessions: %w", err)
	}

	var reaped []*domain.PlaySession
	for _, token := range tokens {
		sess, err := r.Get(ctx, token)
		if err == domain.ErrSessionNotFound {
			// Value expired; drop the stale index entry.
			r.client.Universal().ZRem(ctx, redispkg.PlaySessionIdleKey(), token)
			continue
		}
		if err != nil {
			return reaped, err
		}
		if err := r.Delete(ctx, token); err != nil {
			return reaped, err
		}
		reaped = append(reaped, sess)
	}
	return reaped, nil
}
