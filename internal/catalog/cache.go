package catalog

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tunelease/server/internal/domain"
)

// CachedTrackCatalog wraps a TrackCatalog with an in-process LRU cache and
// request coalescing. Track metadata (size, duration, access) changes rarely,
// and every Range request hits the catalog, so a short TTL pays off.
//
// Company lookups are deliberately not cached: reward decisions must observe
// the company's current subscription state.
type CachedTrackCatalog struct {
	next    TrackCatalog
	maxSize int
	ttl     time.Duration

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List

	hits   uint64
	misses uint64
}

type trackEntry struct {
	id        string
	track     *domain.Track
	expiresAt time.Time
}

// NewCachedTrackCatalog wraps next with an LRU of maxSize entries and the
// given TTL.
func NewCachedTrackCatalog(next TrackCatalog, maxSize int, ttl time.Duration) *CachedTrackCatalog {
	return &CachedTrackCatalog{
		next:    next,
		maxSize: maxSize,
		ttl:     ttl,
		cache:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Track returns the cached track, loading through on miss. Concurrent misses
// for the same id are coalesced into one upstream call.
func (c *CachedTrackCatalog) Track(ctx context.Context, id string) (*domain.Track, error) {
	if t, ok := c.get(id); ok {
		return t, nil
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		// Re-check after winning the flight; a sibling may have filled it.
		if t, ok := c.get(id); ok {
			return t, nil
		}
		t, err := c.next.Track(ctx, id)
		if err != nil {
			return nil, err
		}
		c.set(id, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	clone := *(v.(*domain.Track))
	return &clone, nil
}

// Invalidate drops a track from the cache.
func (c *CachedTrackCatalog) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[id]; ok {
		c.lru.Remove(elem)
		delete(c.cache, id)
	}
}

func (c *CachedTrackCatalog) get(id string) (*domain.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[id]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := elem.Value.(*trackEntry)
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.cache, id)
		c.misses++
		return nil, false
	}
	c.lru.MoveToFront(elem)
	c.hits++
	clone := *entry.track
	return &clone, true
}

func (c *CachedTrackCatalog) set(id string, t *domain.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := *t
	if elem, ok := c.cache[id]; ok {
		entry := elem.Value.(*trackEntry)
		entry.track = &clone
		entry.expiresAt = time.Now().Add(c.ttl)
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(&trackEntry{id: id, track: &clone, expiresAt: time.Now().Add(c.ttl)})
	c.cache[id] = elem

	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*trackEntry).id)
		}
	}
}

// Stats reports cache effectiveness.
func (c *CachedTrackCatalog) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{Size: c.lru.Len(), Hits: c.hits, Misses: c.misses, HitRate: rate}
}

// CacheStats is a snapshot of the track cache counters.
type CacheStats struct {
	Size    int
	Hits    uint64
	Misses  uint64
	HitRate float64
}
