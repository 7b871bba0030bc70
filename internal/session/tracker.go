package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tunelease/server/internal/domain"
	"github.com/tunelease/server/pkg/logger"
)

// Config holds play-validation policy constants.
type Config struct {
	// ValidityThreshold is the accumulated playback duration at which a
	// session emits its valid verdict.
	ValidityThreshold time.Duration
	// IdleTimeout reclaims sessions with no range request for this long.
	IdleTimeout time.Duration
	// SweepInterval controls how often the abandon sweeper runs.
	SweepInterval time.Duration
}

// DefaultConfig returns the platform policy constants.
func DefaultConfig() Config {
	return Config{
		ValidityThreshold: 60 * time.Second,
		IdleTimeout:       5 * time.Minute,
		SweepInterval:     30 * time.Second,
	}
}

// AbandonFunc receives sessions reclaimed by the idle sweeper.
type AbandonFunc func(ctx context.Context, sess *domain.PlaySession)

// Tracker converts a sequence of range requests into a validity verdict.
// It owns session lifecycle: token issue and rotation, the monotonic-offset
// check, byte-to-seconds accrual, and the idle sweep.
type Tracker struct {
	store Store
	cfg   Config
	log   logger.Logger
	now   func() time.Time

	onAbandon AbandonFunc

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store, cfg Config, log logger.Logger) *Tracker {
	if cfg.ValidityThreshold <= 0 {
		cfg = DefaultConfig()
	}
	return &Tracker{
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Resolve returns the live session for a presented token, or a fresh one.
//
// A missing or expired token yields a new session rather than an error, so a
// client retry always makes forward progress. A token bound to a different
// track or company is a protocol error. A range request starting below the
// session's next expected offset is rejected and leaves the session
// untouched.
func (t *Tracker) Resolve(ctx context.Context, token string, track *domain.Track, companyID string, start int64) (*domain.PlaySession, error) {
	if token == "" {
		return t.begin(ctx, track, companyID, start)
	}

	sess, err := t.store.Get(ctx, token)
	if err == domain.ErrSessionNotFound {
		return t.begin(ctx, track, companyID, start)
	}
	if err != nil {
		return nil, err
	}

	if !sess.BoundTo(track.ID, companyID) {
		return nil, domain.ErrTokenMismatch
	}
	if start < sess.NextOffset {
		return nil, domain.ErrNonSequentialRange
	}
	return sess, nil
}

// begin creates a fresh session in the Issued state.
func (t *Tracker) begin(ctx context.Context, track *domain.Track, companyID string, start int64) (*domain.PlaySession, error) {
	now := t.now()
	sess := &domain.PlaySession{
		Token:       newToken(),
		TrackID:     track.ID,
		CompanyID:   companyID,
		NextOffset:  start,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	if err := t.store.Save(ctx, sess, ""); err != nil {
		return nil, err
	}
	t.log.WithContext(ctx).Debug("play session issued",
		logger.String("track_id", track.ID),
		logger.String("company_id", companyID),
		logger.Int64("start_offset", start))
	return sess, nil
}

// Rotate mints the session's next token and persists it, invalidating the
// presented one. Rotation happens before any body bytes are written so the
// X-Play-Token header can carry the new value; accrual waits for the actual
// byte count and goes through Advance.
func (t *Tracker) Rotate(ctx context.Context, sess *domain.PlaySession) (*domain.PlaySession, error) {
	prevToken := sess.Token
	sess.Token = newToken()
	sess.LastSeenAt = t.now()
	if err := t.store.Save(ctx, sess, prevToken); err != nil {
		return nil, err
	}
	return sess, nil
}

// Advance records bytes actually written to the client and reports a
// terminal verdict when one falls due. The count must be what the copy into
// the response returned, not what the range requested: a client that reads
// nothing accrues nothing.
//
// Verdicts:
//   - VerdictValid, exactly once, when accumulated seconds reach the
//     threshold; later calls on the same session never re-emit it.
//   - VerdictInvalid when the full file has been delivered but the session
//     never reached the threshold.
//   - VerdictNone otherwise.
func (t *Tracker) Advance(ctx context.Context, sess *domain.PlaySession, track *domain.Track, start, written int64) (*domain.PlaySession, domain.Verdict, error) {
	end := start + written
	if end > sess.NextOffset {
		sess.NextOffset = end
	}
	sess.BytesDelivered += written
	sess.AccumulatedSeconds += track.SecondsForBytes(written)
	sess.LastSeenAt = t.now()

	verdict := domain.VerdictNone
	if !sess.ValidEmitted && sess.AccumulatedSeconds >= t.cfg.ValidityThreshold.Seconds() {
		sess.ValidEmitted = true
		verdict = domain.VerdictValid
	}

	complete := sess.NextOffset >= track.SizeBytes
	if complete {
		// Fully delivered: the session terminates here. An under-threshold
		// completion is an invalid play.
		if !sess.ValidEmitted {
			verdict = domain.VerdictInvalid
		}
		if err := t.store.Delete(ctx, sess.Token); err != nil {
			return nil, domain.VerdictNone, err
		}
		return sess, verdict, nil
	}

	if err := t.store.Save(ctx, sess, ""); err != nil {
		return nil, domain.VerdictNone, err
	}
	return sess, verdict, nil
}

// Close terminates a session explicitly (client stop). Under-threshold
// sessions close invalid; a session whose valid verdict was already emitted
// just goes away. The token must be bound to the given track and company.
func (t *Tracker) Close(ctx context.Context, token, trackID, companyID string) (*domain.PlaySession, domain.Verdict, error) {
	sess, err := t.store.Get(ctx, token)
	if err != nil {
		return nil, domain.VerdictNone, err
	}
	if !sess.BoundTo(trackID, companyID) {
		return nil, domain.VerdictNone, domain.ErrTokenMismatch
	}
	if err := t.store.Delete(ctx, token); err != nil {
		return nil, domain.VerdictNone, err
	}
	if sess.ValidEmitted {
		return sess, domain.VerdictNone, nil
	}
	return sess, domain.VerdictInvalid, nil
}

// StartSweeper launches the background idle reclaim. Reclaimed sessions are
// handed to onAbandon with their abandoned verdict.
func (t *Tracker) StartSweeper(onAbandon AbandonFunc) {
	t.onAbandon = onAbandon
	go t.sweepLoop()
}

// StopSweeper stops the background sweep and waits for it to finish.
func (t *Tracker) StopSweeper() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

func (t *Tracker) sweepLoop() {
	defer close(t.done)

	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.SweepOnce(context.Background())
		}
	}
}

// SweepOnce reclaims one batch of idle sessions. Exposed for tests and for
// a final sweep during shutdown.
func (t *Tracker) SweepOnce(ctx context.Context) {
	deadline := t.now().Add(-t.cfg.IdleTimeout)
	reaped, err := t.store.ReapIdle(ctx, deadline, 256)
	if err != nil {
		t.log.Error("idle session sweep failed", logger.Error(err))
		return
	}
	for _, sess := range reaped {
		t.log.Debug("play session abandoned",
			logger.String("track_id", sess.TrackID),
			logger.String("company_id", sess.CompanyID),
			logger.Int64("bytes_delivered", sess.BytesDelivered))
		if t.onAbandon != nil {
			t.onAbandon(ctx, sess)
		}
	}
}

// newToken mints an opaque play token. Tokens are capabilities, not claims:
// all binding state lives server-side.
func newToken() string {
	return uuid.New().String()
}
