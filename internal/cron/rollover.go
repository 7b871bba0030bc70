// Package cron schedules the monthly budget rollover.
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tunelease/server/internal/domain"
	"github.com/tunelease/server/internal/repository"
	"github.com/tunelease/server/pkg/logger"
)

// Manager runs scheduled jobs for the play engine. There is exactly one
// today: the budget rollover on the first of each month.
type Manager struct {
	cron    *cron.Cron
	budgets repository.BudgetStore
	log     logger.Logger

	now func() time.Time
}

// NewManager creates the cron manager. Schedules run in UTC, matching the
// budget period key.
func NewManager(budgets repository.BudgetStore, log logger.Logger) *Manager {
	return &Manager{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		budgets: budgets,
		log:     log,
		now:     time.Now,
	}
}

// Start registers and starts the schedule: 00:05 UTC on the first of each
// month, a few minutes past midnight so clock skew between replicas cannot
// land the run in the old month.
func (m *Manager) Start() error {
	_, err := m.cron.AddFunc("5 0 1 * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := m.RunRolloverNow(ctx); err != nil {
			m.log.Error("budget rollover failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register rollover schedule: %w", err)
	}

	m.cron.Start()
	m.log.Info("cron manager started", logger.String("rollover_schedule", "00:05 UTC, 1st of month"))
	return nil
}

// Stop stops the schedule and waits for a running job to finish.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
	m.log.Info("cron manager stopped")
}

// RunRolloverNow rolls the previous month's budgets into the current month.
// Safe to rerun: existing rows for the current month are left untouched.
//
// An auto-reset budget starts the new month at its full total; otherwise the
// remaining count carries forward.
func (m *Manager) RunRolloverNow(ctx context.Context) error {
	now := m.now().UTC()
	current := domain.YearMonthOf(now)
	// Anchor on the first of the month so a manual run late in a long month
	// cannot normalize into the wrong period.
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	previous := domain.YearMonthOf(firstOfMonth.AddDate(0, -1, 0))

	budgets, err := m.budgets.ListByMonth(ctx, previous)
	if err != nil {
		return fmt.Errorf("list budgets for %s: %w", previous, err)
	}

	rolled := 0
	for _, b := range budgets {
		remaining := b.RemainingRewardCount
		if b.AutoReset {
			remaining = b.TotalRewardCount
		}
		next := &domain.MonthlyRewardBudget{
			MusicID:              b.MusicID,
			YearMonth:            current,
			TotalRewardCount:     b.TotalRewardCount,
			RemainingRewardCount: remaining,
			RewardPerPlay:        b.RewardPerPlay,
			AutoReset:            b.AutoReset,
			CreatedAt:            now,
		}
		if err := m.budgets.Create(ctx, next); err != nil {
			return fmt.Errorf("roll budget for track %s into %s: %w", b.MusicID, current, err)
		}
		rolled++
	}

	m.log.Info("budget rollover complete",
		logger.String("from", string(previous)),
		logger.String("to", string(current)),
		logger.Int("budgets", rolled))
	return nil
}
