package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_SecondsForBytes(t *testing.T) {
	track := &Track{SizeBytes: 4_000_000, DurationSec: 200} // 20,000 B/s

	assert.InDelta(t, 60.0, track.SecondsForBytes(1_200_000), 1e-9)
	assert.InDelta(t, 0.0, track.SecondsForBytes(0), 1e-9)

	broken := &Track{SizeBytes: 4_000_000, DurationSec: 0}
	assert.Zero(t, broken.SecondsForBytes(1_000_000))
}

func TestParseTrackAccess(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		_, err := ParseTrackAccess(n)
		assert.NoError(t, err)
	}
	_, err := ParseTrackAccess(3)
	assert.ErrorIs(t, err, ErrInvalidTrackAccess)
}

func TestParseAccessGrade(t *testing.T) {
	for _, s := range []string{"free", "standard", "business"} {
		_, err := ParseAccessGrade(s)
		assert.NoError(t, err)
	}
	_, err := ParseAccessGrade("platinum")
	assert.ErrorIs(t, err, ErrInvalidGrade)
}

func TestCompany_EffectiveGrade(t *testing.T) {
	c := &Company{Grade: GradeBusiness, SubscriptionActive: true}
	assert.Equal(t, GradeBusiness, c.EffectiveGrade())

	c.SubscriptionActive = false
	assert.Equal(t, GradeFree, c.EffectiveGrade())
	assert.False(t, c.EffectiveGrade().Subscribed())
}

func TestYearMonthOf_UsesUTC(t *testing.T) {
	// 23:30 on Aug 31 in UTC-5 is already September in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 8, 31, 23, 30, 0, 0, loc)
	assert.Equal(t, YearMonth("2026-09"), YearMonthOf(local))
}

func TestYearMonth_Next(t *testing.T) {
	next, err := YearMonth("2026-12").Next()
	require.NoError(t, err)
	assert.Equal(t, YearMonth("2027-01"), next)

	_, err = YearMonth("garbage").Next()
	assert.Error(t, err)
}

func TestMonthlyRewardBudget_Validate(t *testing.T) {
	b := &MonthlyRewardBudget{
		MusicID:              "trk-1",
		YearMonth:            "2026-08",
		TotalRewardCount:     10,
		RemainingRewardCount: 10,
		RewardPerPlay:        decimal.NewFromInt(7),
	}
	assert.NoError(t, b.Validate())

	b.RemainingRewardCount = 11
	assert.Error(t, b.Validate())

	b.RemainingRewardCount = -1
	assert.Error(t, b.Validate())
}

func TestMusicPlayRecord_Validate(t *testing.T) {
	rec := &MusicPlayRecord{
		ID:         "play-1",
		MusicID:    "trk-1",
		RewardCode: RewardGranted,
	}
	assert.ErrorIs(t, rec.Validate(), ErrInvalidRewardAmount)

	rec.RewardAmount = decimal.NewFromInt(7)
	assert.NoError(t, rec.Validate())

	rec.RewardCode = RewardNone
	assert.ErrorIs(t, rec.Validate(), ErrInvalidRewardAmount)

	rec.RewardAmount = decimal.Zero
	assert.NoError(t, rec.Validate())
}

func TestRewardLedgerEntry_Validate(t *testing.T) {
	e := &RewardLedgerEntry{
		ID:        "entry-1",
		CompanyID: "co-1",
		MusicID:   "trk-1",
		PlayID:    "play-1",
		Amount:    decimal.NewFromInt(7),
		Status:    SettlementPending,
	}
	assert.NoError(t, e.Validate())

	e.Amount = decimal.Zero
	assert.Error(t, e.Validate())
}

func TestPlaySession_IdleSince(t *testing.T) {
	now := time.Now()
	s := &PlaySession{LastSeenAt: now.Add(-10 * time.Minute)}
	assert.True(t, s.IdleSince(now.Add(-5*time.Minute)))
	assert.False(t, s.IdleSince(now.Add(-15*time.Minute)))
}

func TestPlaySession_BoundTo(t *testing.T) {
	s := &PlaySession{TrackID: "trk-1", CompanyID: "co-1"}
	assert.True(t, s.BoundTo("trk-1", "co-1"))
	assert.False(t, s.BoundTo("trk-2", "co-1"))
	assert.False(t, s.BoundTo("trk-1", ""))
}
