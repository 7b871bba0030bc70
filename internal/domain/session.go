package domain

import "time"

// Verdict is the terminal outcome of a play session.
type Verdict string

const (
	// VerdictNone means the session has not terminated yet.
	VerdictNone Verdict = ""
	// VerdictValid means accumulated playback met the validity threshold.
	VerdictValid Verdict = "valid"
	// VerdictInvalid means the session closed under the threshold or broke
	// the streaming protocol.
	VerdictInvalid Verdict = "invalid"
	// VerdictAbandoned means the session idled out.
	VerdictAbandoned Verdict = "abandoned"
)

// PlaySession is the ephemeral state of one streaming attempt. It is owned
// by the streaming handler for the duration of each request, looked up by
// its most recently issued token, and never persisted beyond its TTL.
type PlaySession struct {
	// Token is the most recently issued opaque capability for this session.
	// It rotates on every response; only the latest value resolves.
	Token     string `json:"token"`
	TrackID   string `json:"track_id"`
	CompanyID string `json:"company_id"` // empty for unauthenticated open-track plays

	// NextOffset is the byte offset the next range request must start at
	// or after. Requests below it are non-sequential and rejected.
	NextOffset     int64 `json:"next_offset"`
	BytesDelivered int64 `json:"bytes_delivered"`

	// AccumulatedSeconds is the estimated playback time derived from
	// delivered bytes and the track's average bitrate.
	AccumulatedSeconds float64 `json:"accumulated_seconds"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`

	// ValidEmitted records that the valid verdict has been handed to the
	// ledger writer; later requests on this session never re-emit it.
	ValidEmitted bool `json:"valid_emitted"`
}

// IdleSince reports whether the session has been silent since the deadline.
func (s *PlaySession) IdleSince(deadline time.Time) bool {
	return s.LastSeenAt.Before(deadline)
}

// BoundTo reports whether the session belongs to the given track and company.
func (s *PlaySession) BoundTo(trackID, companyID string) bool {
	return s.TrackID == trackID && s.CompanyID == companyID
}
