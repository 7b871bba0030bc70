package limiter

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redispkg "github.com/tunelease/server/pkg/redis"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := redispkg.NewClient(&redispkg.Config{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRateLimiter(client), mr
}

func TestAllow_UnderAndOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "rate:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, err := rl.Allow(ctx, "rate:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllow_WindowResets(t *testing.T) {
	rl, mr := newTestLimiter(t)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "rate:test", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = rl.Allow(ctx, "rate:test", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	mr.FastForward(time.Minute + time.Second)

	allowed, err = rl.Allow(ctx, "rate:test", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(t)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "rate:co-1", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = rl.Allow(ctx, "rate:co-1", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = rl.Allow(ctx, "rate:co-2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
