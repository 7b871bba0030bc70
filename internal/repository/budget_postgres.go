package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tunelease/server/internal/domain"
)

// PostgresBudgetStore backs BudgetStore with a postgres table.
type PostgresBudgetStore struct {
	db *pgxpool.Pool
}

// NewPostgresBudgetStore creates a postgres-backed budget store.
func NewPostgresBudgetStore(db *pgxpool.Pool) *PostgresBudgetStore {
	return &PostgresBudgetStore{db: db}
}

// Reserve performs the atomic check-and-decrement. The guarded UPDATE is a
// single statement, so row-level locking makes two concurrent reservations
// against remaining_reward_count=1 serialize: exactly one matches the WHERE
// clause and wins.
func (s *PostgresBudgetStore) Reserve(ctx context.Context, musicID string, ym domain.YearMonth) (ReserveResult, error) {
	query := `
		UPDATE monthly_reward_budgets
		SET remaining_reward_count = remaining_reward_count - 1
		WHERE music_id = $1 AND year_month = $2 AND remaining_reward_count > 0
		RETURNING reward_per_play
	`
	var result ReserveResult
	err := s.db.QueryRow(ctx, query, musicID, string(ym)).Scan(&result.RewardPerPlay)
	if err == nil {
		result.Outcome = ReserveGranted
		return result, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ReserveResult{}, fmt.Errorf("reserve budget: %w", err)
	}

	// No row matched: distinguish an exhausted budget from a missing one.
	var exists bool
	probe := `SELECT EXISTS (SELECT 1 FROM monthly_reward_budgets WHERE music_id = $1 AND year_month = $2)`
	if err := s.db.QueryRow(ctx, probe, musicID, string(ym)).Scan(&exists); err != nil {
		return ReserveResult{}, fmt.Errorf("probe budget: %w", err)
	}
	if exists {
		return ReserveResult{Outcome: ReserveExhausted}, nil
	}
	return ReserveResult{Outcome: ReserveNotConfigured}, nil
}

// Get returns the budget row for a key.
func (s *PostgresBudgetStore) Get(ctx context.Context, musicID string, ym domain.YearMonth) (*domain.MonthlyRewardBudget, error) {
	query := `
		SELECT music_id, year_month, total_reward_count, remaining_reward_count,
		       reward_per_play, auto_reset, created_at
		FROM monthly_reward_budgets
		WHERE music_id = $1 AND year_month = $2
	`
	var b domain.MonthlyRewardBudget
	err := s.db.QueryRow(ctx, query, musicID, string(ym)).Scan(
		&b.MusicID,
		&b.YearMonth,
		&b.TotalRewardCount,
		&b.RemainingRewardCount,
		&b.RewardPerPlay,
		&b.AutoReset,
		&b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBudgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

// Create inserts a budget row; an existing (music_id, year_month) row is
// left untouched so rollover reruns are harmless.
func (s *PostgresBudgetStore) Create(ctx context.Context, budget *domain.MonthlyRewardBudget) error {
	if err := budget.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO monthly_reward_budgets
			(music_id, year_month, total_reward_count, remaining_reward_count,
			 reward_per_play, auto_reset, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (music_id, year_month) DO NOTHING
	`
	_, err := s.db.Exec(ctx, query,
		budget.MusicID,
		string(budget.YearMonth),
		budget.TotalRewardCount,
		budget.RemainingRewardCount,
		budget.RewardPerPlay,
		budget.AutoReset,
		budget.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

// ListByMonth returns all budget rows for a period.
func (s *PostgresBudgetStore) ListByMonth(ctx context.Context, ym domain.YearMonth) ([]*domain.MonthlyRewardBudget, error) {
	query := `
		SELECT music_id, year_month, total_reward_count, remaining_reward_count,
		       reward_per_play, auto_reset, created_at
		FROM monthly_reward_budgets
		WHERE year_month = $1
		ORDER BY music_id
	`
	rows, err := s.db.Query(ctx, query, string(ym))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*domain.MonthlyRewardBudget
	for rows.Next() {
		var b domain.MonthlyRewardBudget
		err := rows.Scan(
			&b.MusicID,
			&b.YearMonth,
			&b.TotalRewardCount,
			&b.RemainingRewardCount,
			&b.RewardPerPlay,
			&b.AutoReset,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, &b)
	}
	return budgets, rows.Err()
}
