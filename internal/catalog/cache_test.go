package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunelease/server/internal/domain"
)

type countingCatalog struct {
	inner *MemoryCatalog
	calls int64
}

func (c *countingCatalog) Track(ctx context.Context, id string) (*domain.Track, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.inner.Track(ctx, id)
}

func fixtureTrack(id string) *domain.Track {
	return &domain.Track{
		ID:          id,
		Title:       "fixture " + id,
		Access:      domain.TrackSubscriptionReward,
		SizeBytes:   4_000_000,
		DurationSec: 200,
		UsePrice:    decimal.NewFromInt(10),
		CreatedAt:   time.Now(),
	}
}

func TestCachedTrackCatalog_HitAvoidsUpstream(t *testing.T) {
	upstream := &countingCatalog{inner: NewMemoryCatalog()}
	upstream.inner.PutTrack(fixtureTrack("trk-1"))

	cached := NewCachedTrackCatalog(upstream, 8, time.Minute)
	ctx := context.Background()

	first, err := cached.Track(ctx, "trk-1")
	require.NoError(t, err)
	second, err := cached.Track(ctx, "trk-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, atomic.LoadInt64(&upstream.calls))

	stats := cached.Stats()
	assert.EqualValues(t, 1, stats.Hits)
}

func TestCachedTrackCatalog_ExpiredEntryReloads(t *testing.T) {
	upstream := &countingCatalog{inner: NewMemoryCatalog()}
	upstream.inner.PutTrack(fixtureTrack("trk-1"))

	cached := NewCachedTrackCatalog(upstream, 8, time.Nanosecond)
	ctx := context.Background()

	_, err := cached.Track(ctx, "trk-1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = cached.Track(ctx, "trk-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&upstream.calls))
}

func TestCachedTrackCatalog_EvictsLeastRecentlyUsed(t *testing.T) {
	upstream := &countingCatalog{inner: NewMemoryCatalog()}
	upstream.inner.PutTrack(fixtureTrack("trk-1"))
	upstream.inner.PutTrack(fixtureTrack("trk-2"))
	upstream.inner.PutTrack(fixtureTrack("trk-3"))

	cached := NewCachedTrackCatalog(upstream, 2, time.Minute)
	ctx := context.Background()

	for _, id := range []string{"trk-1", "trk-2", "trk-3"} {
		_, err := cached.Track(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Stats().Size)

	// trk-1 was evicted, so this miss goes upstream again.
	_, err := cached.Track(ctx, "trk-1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt64(&upstream.calls))
}

func TestCachedTrackCatalog_MissingTrackNotCached(t *testing.T) {
	upstream := &countingCatalog{inner: NewMemoryCatalog()}
	cached := NewCachedTrackCatalog(upstream, 8, time.Minute)

	_, err := cached.Track(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)
	assert.Equal(t, 0, cached.Stats().Size)
}

func TestCachedTrackCatalog_ConcurrentMissesCoalesce(t *testing.T) {
	upstream := &countingCatalog{inner: NewMemoryCatalog()}
	upstream.inner.PutTrack(fixtureTrack("trk-1"))

	cached := NewCachedTrackCatalog(upstream, 8, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.Track(ctx, "trk-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// All goroutines share at most a couple of upstream calls.
	assert.LessOrEqual(t, atomic.LoadInt64(&upstream.calls), int64(2))
}
