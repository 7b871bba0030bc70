package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UseCase classifies what the play record covers.
type UseCase string

const (
	UseCaseMusicPlay UseCase = "music_play"
	UseCaseMusicFull UseCase = "music_full"
	UseCaseLyrics    UseCase = "lyrics"
)

// RewardCode classifies the reward outcome of a play record. It is scoped
// strictly to the reward outcome and nothing else.
type RewardCode string

const (
	// RewardNone: no reward applies (invalid play, unauthenticated caller,
	// no-reward track, or policy denied at grant time).
	RewardNone RewardCode = "none"
	// RewardGranted: a budget reservation succeeded and a ledger entry exists.
	RewardGranted RewardCode = "granted"
	// RewardBudgetExhausted: the monthly budget had no remaining count.
	RewardBudgetExhausted RewardCode = "budget_exhausted"
	// RewardNotConfigured: the track has no budget row for the month.
	RewardNotConfigured RewardCode = "not_configured"
)

// MusicPlayRecord is the durable, append-only fact of one terminated play
// session. Records are never mutated; corrections happen via new rows.
type MusicPlayRecord struct {
	ID              string          `json:"id"`
	MusicID         string          `json:"music_id"`
	CompanyID       string          `json:"company_id"` // empty for unauthenticated plays
	IsValidPlay     bool            `json:"is_valid_play"`
	PlayDurationSec int             `json:"play_duration_sec"`
	UseCase         UseCase         `json:"use_case"`
	RewardCode      RewardCode      `json:"reward_code"`
	RewardAmount    decimal.Decimal `json:"reward_amount"`
	UsePrice        decimal.Decimal `json:"use_price"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Validate checks record consistency before it is written.
func (r *MusicPlayRecord) Validate() error {
	if r.MusicID == "" {
		return ErrTrackNotFound
	}
	if r.RewardCode == RewardGranted && r.RewardAmount.IsZero() {
		return ErrInvalidRewardAmount
	}
	if r.RewardCode != RewardGranted && !r.RewardAmount.IsZero() {
		return ErrInvalidRewardAmount
	}
	return nil
}
