package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackAccess is the access requirement attached to a track.
type TrackAccess int

const (
	// TrackOpen is playable by anyone, including unauthenticated callers.
	TrackOpen TrackAccess = 0
	// TrackSubscriptionReward requires a subscribed company; valid plays
	// may earn a reward.
	TrackSubscriptionReward TrackAccess = 1
	// TrackSubscriptionNoReward requires a subscribed company; valid plays
	// never earn a reward.
	TrackSubscriptionNoReward TrackAccess = 2
)

// ParseTrackAccess validates a stored requirement value.
func ParseTrackAccess(n int) (TrackAccess, error) {
	switch TrackAccess(n) {
	case TrackOpen, TrackSubscriptionReward, TrackSubscriptionNoReward:
		return TrackAccess(n), nil
	default:
		return 0, ErrInvalidTrackAccess
	}
}

// Track is a catalog entry. The catalog service owns it; the play engine
// reads the fields it needs to serve bytes and estimate playback time.
type Track struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Access      TrackAccess     `json:"access"`
	SizeBytes   int64           `json:"size_bytes"`
	DurationSec int             `json:"duration_sec"`
	UsePrice    decimal.Decimal `json:"use_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BytesPerSecond returns the track's average byte rate, used to convert
// delivered bytes into estimated playback seconds.
func (t *Track) BytesPerSecond() float64 {
	if t.DurationSec <= 0 {
		return 0
	}
	return float64(t.SizeBytes) / float64(t.DurationSec)
}

// SecondsForBytes estimates the playback duration covered by n delivered
// bytes. Derived from the average bitrate, not wall-clock time, so replaying
// or fast-forwarding cannot inflate it.
func (t *Track) SecondsForBytes(n int64) float64 {
	bps := t.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return float64(n) / bps
}
