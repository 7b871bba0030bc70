// Package repository owns durable state: monthly reward budgets, play
// records and reward ledger entries. Postgres implementations back the
// platform; memory implementations back tests and standalone mode.
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tunelease/server/internal/domain"
)

// ReserveOutcome is the result kind of a budget reservation.
type ReserveOutcome int

const (
	// ReserveGranted means one reward count was atomically consumed.
	ReserveGranted ReserveOutcome = iota
	// ReserveExhausted means the budget row exists but has no remaining count.
	ReserveExhausted
	// ReserveNotConfigured means no budget row exists for the key.
	ReserveNotConfigured
)

// String returns the metric label for the outcome.
func (o ReserveOutcome) String() string {
	switch o {
	case ReserveGranted:
		return "granted"
	case ReserveExhausted:
		return "exhausted"
	case ReserveNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// ReserveResult carries the outcome of a reservation and, when granted,
// the reward value consumed.
type ReserveResult struct {
	Outcome       ReserveOutcome
	RewardPerPlay decimal.Decimal
}

// BudgetStore is the authoritative holder of per-(track, month) reward
// budgets.
//
// Reserve is the only operation that may decrement remaining_reward_count,
// and it is atomic: two concurrent calls against a count of 1 can never both
// be granted. There is no release operation; grants are never rolled back.
type BudgetStore interface {
	Reserve(ctx context.Context, musicID string, ym domain.YearMonth) (ReserveResult, error)

	// Get returns the budget row, or domain.ErrBudgetNotFound.
	Get(ctx context.Context, musicID string, ym domain.YearMonth) (*domain.MonthlyRewardBudget, error)

	// Create inserts a budget row; existing rows are left untouched so the
	// monthly rollover is idempotent.
	Create(ctx context.Context, budget *domain.MonthlyRewardBudget) error

	// ListByMonth returns all budget rows for a period, for the rollover job.
	ListByMonth(ctx context.Context, ym domain.YearMonth) ([]*domain.MonthlyRewardBudget, error)
}

// LedgerStore persists the append-only play records and reward ledger.
//
// RecordPlay writes the play record and, when entry is non-nil, the ledger
// entry in a single transaction, so a granted record and its entry are never
// observably inconsistent.
type LedgerStore interface {
	RecordPlay(ctx context.Context, record *domain.MusicPlayRecord, entry *domain.RewardLedgerEntry) error

	// GetPlay returns a play record by id, or domain.ErrPlayNotFound.
	GetPlay(ctx context.Context, id string) (*domain.MusicPlayRecord, error)

	// EntryByPlay returns the ledger entry referencing a play record, or
	// domain.ErrLedgerEntryNotFound.
	EntryByPlay(ctx context.Context, playID string) (*domain.RewardLedgerEntry, error)
}
