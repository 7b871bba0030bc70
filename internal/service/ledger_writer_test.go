package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunelease/server/internal/catalog"
	"github.com/tunelease/server/internal/domain"
	"github.com/tunelease/server/internal/repository"
	"github.com/tunelease/server/pkg/logger"
	"github.com/tunelease/server/pkg/telemetry"
)

type writerFixture struct {
	writer  *LedgerWriter
	budgets *repository.MemoryBudgetStore
	ledger  *repository.MemoryLedgerStore
	catalog *catalog.MemoryCatalog
	now     time.Time
}

func newWriterFixture(t *testing.T) *writerFixture {
	t.Helper()

	metrics, shutdown, err := telemetry.Init(context.Background(), &telemetry.Config{ServiceName: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	f := &writerFixture{
		budgets: repository.NewMemoryBudgetStore(),
		ledger:  repository.NewMemoryLedgerStore(),
		catalog: catalog.NewMemoryCatalog(),
		now:     time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
	}
	f.writer = NewLedgerWriter(f.budgets, f.ledger, f.catalog, f.catalog, metrics, logger.Default(), RetryConfig{
		MaxRetries:  3,
		InitialWait: time.Millisecond,
		MaxWait:     time.Millisecond,
		Multiplier:  1.0,
	})
	f.writer.now = func() time.Time { return f.now }
	return f
}

func (f *writerFixture) addCompany(id string, grade domain.AccessGrade, active bool) {
	f.catalog.PutCompany(&domain.Company{ID: id, Name: id, Grade: grade, SubscriptionActive: active})
}

func (f *writerFixture) addBudget(t *testing.T, musicID string, count int, perPlay int64) {
	t.Helper()
	require.NoError(t, f.budgets.Create(context.Background(), &domain.MonthlyRewardBudget{
		MusicID:              musicID,
		YearMonth:            domain.YearMonthOf(f.now),
		TotalRewardCount:     count,
		RemainingRewardCount: count,
		RewardPerPlay:        decimal.NewFromInt(perPlay),
		AutoReset:            true,
		CreatedAt:            f.now,
	}))
}

func rewardTrack(id string) *domain.Track {
	return &domain.Track{
		ID:          id,
		Title:       "t",
		Access:      domain.TrackSubscriptionReward,
		SizeBytes:   4_000_000,
		DurationSec: 200,
		UsePrice:    decimal.NewFromInt(5),
	}
}

func validSession(trackID, companyID string) *domain.PlaySession {
	return &domain.PlaySession{
		Token:              "tok",
		TrackID:            trackID,
		CompanyID:          companyID,
		NextOffset:         1_600_000,
		BytesDelivered:     1_600_000,
		AccumulatedSeconds: 80,
	}
}

func TestCompletePlay_ValidPlayGrantsRewardAndLedgerEntry(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)
	f.addBudget(t, "trk-1", 10, 7)

	record, err := f.writer.CompletePlay(context.Background(),
		validSession("trk-1", "co-1"), rewardTrack("trk-1"), domain.VerdictValid, domain.UseCaseMusicPlay)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.True(t, record.IsValidPlay)
	assert.Equal(t, domain.RewardGranted, record.RewardCode)
	assert.True(t, record.RewardAmount.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, 80, record.PlayDurationSec)

	entry, err := f.ledger.EntryByPlay(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "co-1", entry.CompanyID)
	assert.Equal(t, domain.SettlementPending, entry.Status)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(7)))

	budget, err := f.budgets.Get(context.Background(), "trk-1", domain.YearMonthOf(f.now))
	require.NoError(t, err)
	assert.EqualValues(t, 9, budget.RemainingRewardCount)
}

func TestCompletePlay_ConcurrentPlaysNeverOvergrant(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)
	f.addBudget(t, "trk-1", 1, 7)

	const players = 8
	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.writer.CompletePlay(context.Background(),
				validSession("trk-1", "co-1"), rewardTrack("trk-1"), domain.VerdictValid, domain.UseCaseMusicPlay)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	granted, exhausted := 0, 0
	for _, r := range f.ledger.Plays() {
		assert.True(t, r.IsValidPlay)
		switch r.RewardCode {
		case domain.RewardGranted:
			granted++
		case domain.RewardBudgetExhausted:
			exhausted++
		default:
			t.Fatalf("unexpected reward code %q", r.RewardCode)
		}
	}
	assert.Equal(t, 1, granted)
	assert.Equal(t, players-1, exhausted)
	assert.Len(t, f.ledger.Entries(), 1)

	budget, err := f.budgets.Get(context.Background(), "trk-1", domain.YearMonthOf(f.now))
	require.NoError(t, err)
	assert.EqualValues(t, 0, budget.RemainingRewardCount)
}

func TestCompletePlay_NoBudgetRowIsNotConfigured(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)

	record, err := f.writer.CompletePlay(context.Background(),
		validSession("trk-1", "co-1"), rewardTrack("trk-1"), domain.VerdictValid, domain.UseCaseMusicPlay)
	require.NoError(t, err)

	assert.True(t, record.IsValidPlay)
	assert.Equal(t, domain.RewardNotConfigured, record.RewardCode)
	assert.True(t, record.RewardAmount.IsZero())
	assert.Empty(t, f.ledger.Entries())
}

func TestCompletePlay_LapsedSubscriptionKeepsValidPlayWithoutReward(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, false) // lapsed after the session started
	f.addBudget(t, "trk-1", 10, 7)

	record, err := f.writer.CompletePlay(context.Background(),
		validSession("trk-1", "co-1"), rewardTrack("trk-1"), domain.VerdictValid, domain.UseCaseMusicPlay)
	require.NoError(t, err)

	assert.True(t, record.IsValidPlay)
	assert.Equal(t, domain.RewardNone, record.RewardCode)
	assert.Empty(t, f.ledger.Entries())

	// The budget was never touched.
	budget, err := f.budgets.Get(context.Background(), "trk-1", domain.YearMonthOf(f.now))
	require.NoError(t, err)
	assert.EqualValues(t, 10, budget.RemainingRewardCount)
}

func TestCompletePlay_NoRewardTrackSkipsBudget(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)
	f.addBudget(t, "trk-1", 10, 7)

	track := rewardTrack("trk-1")
	track.Access = domain.TrackSubscriptionNoReward

	record, err := f.writer.CompletePlay(context.Background(),
		validSession("trk-1", "co-1"), track, domain.VerdictValid, domain.UseCaseMusicPlay)
	require.NoError(t, err)

	assert.Equal(t, domain.RewardNone, record.RewardCode)
	budget, err := f.budgets.Get(context.Background(), "trk-1", domain.YearMonthOf(f.now))
	require.NoError(t, err)
	assert.EqualValues(t, 10, budget.RemainingRewardCount)
}

func TestCompletePlay_AnonymousOpenTrackPlayRecordedWithoutReward(t *testing.T) {
	f := newWriterFixture(t)
	f.addBudget(t, "trk-1", 10, 7)

	track := rewardTrack("trk-1")
	track.Access = domain.TrackOpen

	record, err := f.writer.CompletePlay(context.Background(),
		validSession("trk-1", ""), track, domain.VerdictValid, domain.UseCaseMusicPlay)
	require.NoError(t, err)

	assert.True(t, record.IsValidPlay)
	assert.Empty(t, record.CompanyID)
	assert.Equal(t, domain.RewardNone, record.RewardCode)
	assert.Empty(t, f.ledger.Entries())
}

func TestCompletePlay_InvalidPlayWritesRecordOnly(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)
	f.addBudget(t, "trk-1", 10, 7)

	sess := validSession("trk-1", "co-1")
	sess.AccumulatedSeconds = 12

	record, err := f.writer.CompletePlay(context.Background(),
		sess, rewardTrack("trk-1"), domain.VerdictInvalid, domain.UseCaseMusicPlay)
	require.NoError(t, err)

	assert.False(t, record.IsValidPlay)
	assert.Equal(t, domain.RewardNone, record.RewardCode)
	assert.Equal(t, 12, record.PlayDurationSec)
	assert.Empty(t, f.ledger.Entries())
}

func TestCompletePlay_AbandonedAfterSettlementWritesNothing(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)

	sess := validSession("trk-1", "co-1")
	sess.ValidEmitted = true

	record, err := f.writer.CompletePlay(context.Background(),
		sess, rewardTrack("trk-1"), domain.VerdictAbandoned, domain.UseCaseMusicPlay)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, f.ledger.Plays())
}

func TestCompletePlay_AbandonedWithoutBytesWritesNothing(t *testing.T) {
	f := newWriterFixture(t)

	sess := &domain.PlaySession{Token: "tok", TrackID: "trk-1", CompanyID: "co-1"}
	record, err := f.writer.CompletePlay(context.Background(),
		sess, rewardTrack("trk-1"), domain.VerdictAbandoned, domain.UseCaseMusicPlay)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, f.ledger.Plays())
}

func TestCompletePlay_AbandonedMidStreamRecordsInvalidPlay(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)

	sess := validSession("trk-1", "co-1")
	sess.AccumulatedSeconds = 30

	record, err := f.writer.CompletePlay(context.Background(),
		sess, rewardTrack("trk-1"), domain.VerdictAbandoned, domain.UseCaseMusicPlay)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.IsValidPlay)
	assert.Equal(t, domain.RewardNone, record.RewardCode)
}

func TestAbandon_LooksUpTrackAndRecordsInvalidPlay(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)
	f.catalog.PutTrack(rewardTrack("trk-1"))

	sess := validSession("trk-1", "co-1")
	sess.AccumulatedSeconds = 40

	f.writer.Abandon(context.Background(), sess)

	plays := f.ledger.Plays()
	require.Len(t, plays, 1)
	assert.False(t, plays[0].IsValidPlay)
	assert.Equal(t, domain.RewardNone, plays[0].RewardCode)
}

// flakyLedger fails the first n RecordPlay calls.
type flakyLedger struct {
	*repository.MemoryLedgerStore
	mu       sync.Mutex
	failures int
}

func (l *flakyLedger) RecordPlay(ctx context.Context, record *domain.MusicPlayRecord, entry *domain.RewardLedgerEntry) error {
	l.mu.Lock()
	fail := l.failures > 0
	if fail {
		l.failures--
	}
	l.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return l.MemoryLedgerStore.RecordPlay(ctx, record, entry)
}

func TestCompletePlay_RetriesDurableWriteAfterGrant(t *testing.T) {
	f := newWriterFixture(t)
	f.addCompany("co-1", domain.GradeStandard, true)
	f.addBudget(t, "trk-1", 1, 7)

	flaky := &flakyLedger{MemoryLedgerStore: f.ledger, failures: 2}
	f.writer.ledger = flaky

	record, err := f.writer.CompletePlay(context.Background(),
		validSession("trk-1", "co-1"), rewardTrack("trk-1"), domain.VerdictValid, domain.UseCaseMusicPlay)
	require.NoError(t, err)

	// The grant survived the transient failures: record and entry both landed.
	assert.Equal(t, domain.RewardGranted, record.RewardCode)
	_, err = f.ledger.GetPlay(context.Background(), record.ID)
	require.NoError(t, err)
	_, err = f.ledger.EntryByPlay(context.Background(), record.ID)
	require.NoError(t, err)
}
