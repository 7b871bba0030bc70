// Package limiter provides rate limiting backed by Redis.
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redispkg "github.com/tunelease/server/pkg/redis"
)

// atomicIncrExpire atomically increments a counter and sets TTL on the first
// increment, avoiding the race between separate INCR and EXPIRE calls.
var atomicIncrExpire = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter provides fixed-window rate limiting using Redis.
type RateLimiter struct {
	client *redispkg.Client
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redispkg.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow checks if a request is allowed under the rate limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	result, err := atomicIncrExpire.Run(ctx, rl.client.Universal(), []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result <= limit, nil
}
