package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tunelease/server/internal/domain"
)

// MemoryBudgetStore is the in-memory BudgetStore used by tests and
// standalone mode. A single mutex covers the check-and-decrement, giving the
// same linearizability per key as the guarded UPDATE in postgres.
type MemoryBudgetStore struct {
	mu      sync.Mutex
	budgets map[budgetKey]*domain.MonthlyRewardBudget
}

type budgetKey struct {
	musicID   string
	yearMonth domain.YearMonth
}

// NewMemoryBudgetStore creates an in-memory budget store.
func NewMemoryBudgetStore() *MemoryBudgetStore {
	return &MemoryBudgetStore{
		budgets: make(map[budgetKey]*domain.MonthlyRewardBudget),
	}
}

// Reserve atomically consumes one reward count when available.
func (s *MemoryBudgetStore) Reserve(ctx context.Context, musicID string, ym domain.YearMonth) (ReserveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[budgetKey{musicID, ym}]
	if !ok {
		return ReserveResult{Outcome: ReserveNotConfigured}, nil
	}
	if b.RemainingRewardCount <= 0 {
		return ReserveResult{Outcome: ReserveExhausted}, nil
	}
	b.RemainingRewardCount--
	return ReserveResult{Outcome: ReserveGranted, RewardPerPlay: b.RewardPerPlay}, nil
}

// Get returns a copy of the budget row.
func (s *MemoryBudgetStore) Get(ctx context.Context, musicID string, ym domain.YearMonth) (*domain.MonthlyRewardBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[budgetKey{musicID, ym}]
	if !ok {
		return nil, domain.ErrBudgetNotFound
	}
	clone := *b
	return &clone, nil
}

// Create inserts a budget row; existing rows are left untouched.
func (s *MemoryBudgetStore) Create(ctx context.Context, budget *domain.MonthlyRewardBudget) error {
	if err := budget.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := budgetKey{budget.MusicID, budget.YearMonth}
	if _, exists := s.budgets[key]; exists {
		return nil
	}
	clone := *budget
	s.budgets[key] = &clone
	return nil
}

// ListByMonth returns copies of all budget rows for a period.
func (s *MemoryBudgetStore) ListByMonth(ctx context.Context, ym domain.YearMonth) ([]*domain.MonthlyRewardBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var budgets []*domain.MonthlyRewardBudget
	for key, b := range s.budgets {
		if key.yearMonth == ym {
			clone := *b
			budgets = append(budgets, &clone)
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].MusicID < budgets[j].MusicID })
	return budgets, nil
}

// MemoryLedgerStore is the in-memory LedgerStore used by tests and
// standalone mode.
type MemoryLedgerStore struct {
	mu      sync.Mutex
	plays   map[string]*domain.MusicPlayRecord
	entries map[string]*domain.RewardLedgerEntry // keyed by play id
}

// NewMemoryLedgerStore creates an in-memory ledger store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		plays:   make(map[string]*domain.MusicPlayRecord),
		entries: make(map[string]*domain.RewardLedgerEntry),
	}
}

// RecordPlay stores the record and entry under one lock, mirroring the
// postgres transaction boundary.
func (s *MemoryLedgerStore) RecordPlay(ctx context.Context, record *domain.MusicPlayRecord, entry *domain.RewardLedgerEntry) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if entry != nil {
		if err := entry.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recClone := *record
	s.plays[record.ID] = &recClone
	if entry != nil {
		entClone := *entry
		s.entries[entry.PlayID] = &entClone
	}
	return nil
}

// GetPlay returns a copy of a play record.
func (s *MemoryLedgerStore) GetPlay(ctx context.Context, id string) (*domain.MusicPlayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.plays[id]
	if !ok {
		return nil, domain.ErrPlayNotFound
	}
	clone := *r
	return &clone, nil
}

// EntryByPlay returns a copy of the entry referencing a play record.
func (s *MemoryLedgerStore) EntryByPlay(ctx context.Context, playID string) (*domain.RewardLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[playID]
	if !ok {
		return nil, domain.ErrLedgerEntryNotFound
	}
	clone := *e
	return &clone, nil
}

// Plays returns all play records, ordered by creation time. Test helper.
func (s *MemoryLedgerStore) Plays() []*domain.MusicPlayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.MusicPlayRecord, 0, len(s.plays))
	for _, r := range s.plays {
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Entries returns all ledger entries. Test helper.
func (s *MemoryLedgerStore) Entries() []*domain.RewardLedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.RewardLedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
