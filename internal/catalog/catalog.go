// Package catalog provides read-only access to tracks and companies. Both
// entities are owned by other platform services; the play engine only looks
// them up.
package catalog

import (
	"context"
	"sync"

	"github.com/tunelease/server/internal/domain"
)

// TrackCatalog resolves track metadata.
type TrackCatalog interface {
	// Track returns the track, or domain.ErrTrackNotFound.
	Track(ctx context.Context, id string) (*domain.Track, error)
}

// CompanyDirectory resolves company state. Lookups must be fresh enough to
// observe mid-session grade changes; the ledger writer re-reads at grant
// time.
type CompanyDirectory interface {
	// Company returns the company, or domain.ErrCompanyNotFound.
	Company(ctx context.Context, id string) (*domain.Company, error)
}

// MemoryCatalog is a fixture-backed TrackCatalog and CompanyDirectory for
// tests and standalone mode.
type MemoryCatalog struct {
	mu        sync.RWMutex
	tracks    map[string]*domain.Track
	companies map[string]*domain.Company
}

// NewMemoryCatalog creates an empty fixture catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tracks:    make(map[string]*domain.Track),
		companies: make(map[string]*domain.Company),
	}
}

// PutTrack adds or replaces a track fixture.
func (m *MemoryCatalog) PutTrack(t *domain.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.tracks[t.ID] = &clone
}

// PutCompany adds or replaces a company fixture.
func (m *MemoryCatalog) PutCompany(c *domain.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.companies[c.ID] = &clone
}

// Track returns a track fixture.
func (m *MemoryCatalog) Track(ctx context.Context, id string) (*domain.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracks[id]
	if !ok {
		return nil, domain.ErrTrackNotFound
	}
	clone := *t
	return &clone, nil
}

// Company returns a company fixture.
func (m *MemoryCatalog) Company(ctx context.Context, id string) (*domain.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	clone := *c
	return &clone, nil
}
