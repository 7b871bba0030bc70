// Package service orchestrates the play engine: it turns terminal session
// verdicts into durable play records and reward ledger entries.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tunelease/server/internal/catalog"
	"github.com/tunelease/server/internal/domain"
	"github.com/tunelease/server/internal/policy"
	"github.com/tunelease/server/internal/repository"
	"github.com/tunelease/server/pkg/logger"
	"github.com/tunelease/server/pkg/telemetry"
)

// LedgerWriter handles terminal play sessions. For a valid verdict it decides
// the reward, reserves budget and writes the play record together with the
// ledger entry; for invalid and abandoned verdicts it writes the record alone.
//
// Ordering is fixed: budget reservation first, durable write second. A grant
// is never rolled back, so a failed write is retried until the record lands.
type LedgerWriter struct {
	budgets   repository.BudgetStore
	ledger    repository.LedgerStore
	companies catalog.CompanyDirectory
	tracks    catalog.TrackCatalog
	metrics   *telemetry.Provider
	log       logger.Logger
	retry     RetryConfig

	now func() time.Time
}

// NewLedgerWriter creates a ledger writer.
func NewLedgerWriter(
	budgets repository.BudgetStore,
	ledger repository.LedgerStore,
	companies catalog.CompanyDirectory,
	tracks catalog.TrackCatalog,
	metrics *telemetry.Provider,
	log logger.Logger,
	retry RetryConfig,
) *LedgerWriter {
	return &LedgerWriter{
		budgets:   budgets,
		ledger:    ledger,
		companies: companies,
		tracks:    tracks,
		metrics:   metrics,
		log:       log,
		retry:     retry,
		now:       time.Now,
	}
}

// Abandon settles a session reclaimed by the idle sweeper. Sessions that
// already settled their valid verdict, or never delivered a byte, are
// dropped silently.
func (w *LedgerWriter) Abandon(ctx context.Context, sess *domain.PlaySession) {
	if sess.ValidEmitted || sess.BytesDelivered == 0 {
		return
	}
	track, err := w.tracks.Track(ctx, sess.TrackID)
	if err != nil {
		w.log.Error("abandoned session references unknown track",
			logger.String("track_id", sess.TrackID),
			logger.Error(err))
		return
	}
	if _, err := w.CompletePlay(ctx, sess, track, domain.VerdictAbandoned, domain.UseCaseMusicPlay); err != nil {
		w.log.Error("settle abandoned session",
			logger.String("track_id", sess.TrackID),
			logger.Error(err))
	}
}

// CompletePlay settles a terminal session. It returns the play record it
// wrote, or nil when the session needed no record (abandoned before any bytes,
// or abandoned after its valid verdict was already settled).
func (w *LedgerWriter) CompletePlay(ctx context.Context, sess *domain.PlaySession, track *domain.Track, verdict domain.Verdict, useCase domain.UseCase) (*domain.MusicPlayRecord, error) {
	if verdict == domain.VerdictAbandoned {
		// The valid-play record was written when the threshold fired; an
		// abandoned session that already settled needs nothing more.
		if sess.ValidEmitted {
			return nil, nil
		}
		if sess.BytesDelivered == 0 {
			return nil, nil
		}
	}

	w.metrics.CountVerdict(ctx, string(verdict))

	record := &domain.MusicPlayRecord{
		ID:              uuid.NewString(),
		MusicID:         sess.TrackID,
		CompanyID:       sess.CompanyID,
		IsValidPlay:     verdict == domain.VerdictValid,
		PlayDurationSec: int(sess.AccumulatedSeconds),
		UseCase:         useCase,
		RewardCode:      domain.RewardNone,
		UsePrice:        track.UsePrice,
		CreatedAt:       w.now(),
	}

	var entry *domain.RewardLedgerEntry
	if record.IsValidPlay {
		code, amount, err := w.decideReward(ctx, sess, track)
		if err != nil {
			return nil, err
		}
		record.RewardCode = code
		record.RewardAmount = amount
		if code == domain.RewardGranted {
			entry = &domain.RewardLedgerEntry{
				ID:        uuid.NewString(),
				CompanyID: sess.CompanyID,
				MusicID:   sess.TrackID,
				PlayID:    record.ID,
				Amount:    amount,
				Status:    domain.SettlementPending,
				CreatedAt: record.CreatedAt,
			}
		}
	}

	w.metrics.CountReward(ctx, string(record.RewardCode))

	if err := w.persist(ctx, record, entry); err != nil {
		return nil, err
	}
	return record, nil
}

// decideReward re-checks eligibility at grant time and, when the company can
// earn, reserves one count from this month's budget. Reward codes for the
// ineligible cases:
//
//	anonymous or lapsed company  -> none
//	budget row missing           -> not_configured
//	budget row at zero           -> budget_exhausted
func (w *LedgerWriter) decideReward(ctx context.Context, sess *domain.PlaySession, track *domain.Track) (domain.RewardCode, decimal.Decimal, error) {
	if sess.CompanyID == "" {
		return domain.RewardNone, decimal.Zero, nil
	}

	company, err := w.companies.Company(ctx, sess.CompanyID)
	if errors.Is(err, domain.ErrCompanyNotFound) {
		w.log.Warn("company vanished before reward decision",
			logger.String("company_id", sess.CompanyID),
			logger.String("track_id", sess.TrackID))
		return domain.RewardNone, decimal.Zero, nil
	}
	if err != nil {
		return "", decimal.Zero, err
	}

	if !policy.CanEarnReward(true, company.EffectiveGrade(), track.Access) {
		return domain.RewardNone, decimal.Zero, nil
	}

	result, err := w.budgets.Reserve(ctx, track.ID, domain.YearMonthOf(w.now()))
	if err != nil {
		return "", decimal.Zero, err
	}
	w.metrics.CountReserve(ctx, result.Outcome.String())

	switch result.Outcome {
	case repository.ReserveGranted:
		return domain.RewardGranted, result.RewardPerPlay, nil
	case repository.ReserveExhausted:
		return domain.RewardBudgetExhausted, decimal.Zero, nil
	default:
		return domain.RewardNotConfigured, decimal.Zero, nil
	}
}

// persist writes the record and entry, retrying transient failures. When the
// caller's context dies mid-retry the write detaches to the background: a
// reserved budget count without its record would understate payouts.
func (w *LedgerWriter) persist(ctx context.Context, record *domain.MusicPlayRecord, entry *domain.RewardLedgerEntry) error {
	var err error
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			ctx = context.Background()
		}
		err = w.ledger.RecordPlay(ctx, record, entry)
		if err == nil {
			return nil
		}
		if !w.retry.ShouldRetry(attempt + 1) {
			break
		}
		w.log.Warn("record play failed, retrying",
			logger.String("play_id", record.ID),
			logger.Int("attempt", attempt+1),
			logger.Error(err))
		time.Sleep(w.retry.Backoff(attempt + 1))
	}

	w.log.Error("record play failed permanently",
		logger.String("play_id", record.ID),
		logger.String("music_id", record.MusicID),
		logger.String("reward_code", string(record.RewardCode)),
		logger.Error(err))
	return err
}
