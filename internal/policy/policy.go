// Package policy decides whether a caller may play a track. Pure functions,
// no I/O; the handler consults it before any session exists and the ledger
// writer consults it again at grant time.
package policy

import "github.com/tunelease/server/internal/domain"

// Decision is the outcome of an access evaluation.
type Decision int

const (
	// Allowed means content is servable.
	Allowed Decision = iota
	// LoginRequired means the caller must authenticate first.
	LoginRequired
	// SubscriptionRequired means the company's grade does not cover the track.
	SubscriptionRequired
)

// String returns the wire name of the decision.
func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case LoginRequired:
		return "login_required"
	case SubscriptionRequired:
		return "subscription_required"
	default:
		return "unknown"
	}
}

// Evaluate applies the grade rules:
//   - open tracks are always servable, even unauthenticated (though an
//     unauthenticated play can never accrue a reward — no company to credit);
//   - subscription tracks require an authenticated company whose effective
//     grade is not free.
func Evaluate(authenticated bool, grade domain.AccessGrade, access domain.TrackAccess) Decision {
	if access == domain.TrackOpen {
		return Allowed
	}
	if !authenticated {
		return LoginRequired
	}
	if !grade.Subscribed() {
		return SubscriptionRequired
	}
	return Allowed
}

// CanEarnReward reports whether a valid play under this evaluation may be
// considered for a reward at all: the caller must be an authenticated,
// still-allowed company, and the track must not be a no-reward track.
func CanEarnReward(authenticated bool, grade domain.AccessGrade, access domain.TrackAccess) bool {
	if !authenticated {
		return false
	}
	if access == domain.TrackSubscriptionNoReward {
		return false
	}
	return Evaluate(authenticated, grade, access) == Allowed
}
