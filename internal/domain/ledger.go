package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the payout state of a ledger entry. The engine only
// ever creates entries pending; a separate settlement process drives the
// pending -> settled | failed transitions.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSettled SettlementStatus = "settled"
	SettlementFailed  SettlementStatus = "failed"
)

// RewardLedgerEntry is the durable liability created for a granted play.
// One-to-one with a MusicPlayRecord whose reward_code is granted.
type RewardLedgerEntry struct {
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id"`
	MusicID   string           `json:"music_id"`
	PlayID    string           `json:"play_id"`
	Amount    decimal.Decimal  `json:"amount"`
	Status    SettlementStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// Validate checks entry consistency before it is written.
func (e *RewardLedgerEntry) Validate() error {
	if e.CompanyID == "" {
		return ErrCompanyNotFound
	}
	if e.PlayID == "" || e.MusicID == "" {
		return ErrTrackNotFound
	}
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidRewardAmount
	}
	return nil
}
