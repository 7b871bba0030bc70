package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth is the budget period key, formatted YYYY-MM in UTC.
type YearMonth string

// YearMonthOf returns the period containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth(t.UTC().Format("2006-01"))
}

// Next returns the following period.
func (ym YearMonth) Next() (YearMonth, error) {
	t, err := time.Parse("2006-01", string(ym))
	if err != nil {
		return "", fmt.Errorf("malformed year_month %q: %w", ym, err)
	}
	return YearMonth(t.AddDate(0, 1, 0).Format("2006-01")), nil
}

// MonthlyRewardBudget caps how many valid plays of a track may earn a reward
// in one month. remaining_reward_count is mutated only through the store's
// atomic reserve operation and administrative rollover.
//
// Invariant: 0 <= RemainingRewardCount <= TotalRewardCount.
type MonthlyRewardBudget struct {
	MusicID              string          `json:"music_id"`
	YearMonth            YearMonth       `json:"year_month"`
	TotalRewardCount     int             `json:"total_reward_count"`
	RemainingRewardCount int             `json:"remaining_reward_count"`
	RewardPerPlay        decimal.Decimal `json:"reward_per_play"`
	// AutoReset controls the monthly rollover: true starts the new month at
	// the full total, false carries the remaining count forward.
	AutoReset bool      `json:"auto_reset"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks budget consistency.
func (b *MonthlyRewardBudget) Validate() error {
	if b.MusicID == "" {
		return ErrTrackNotFound
	}
	if b.TotalRewardCount < 0 || b.RemainingRewardCount < 0 {
		return fmt.Errorf("budget counts must be non-negative")
	}
	if b.RemainingRewardCount > b.TotalRewardCount {
		return fmt.Errorf("remaining_reward_count %d exceeds total_reward_count %d",
			b.RemainingRewardCount, b.TotalRewardCount)
	}
	return nil
}
