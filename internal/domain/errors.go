package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches a play token.
	ErrSessionNotFound = errors.New("play session not found")

	// ErrTokenMismatch is returned when a token resolves to a session bound
	// to a different track or company.
	ErrTokenMismatch = errors.New("play token bound to a different track or company")

	// ErrNonSequentialRange is returned when a range request starts below
	// the session's next expected offset.
	ErrNonSequentialRange = errors.New("range offset below last delivered byte")

	// ErrMalformedRange is returned for Range headers the streaming protocol
	// does not accept.
	ErrMalformedRange = errors.New("malformed range header")

	// ErrRangeNotSatisfiable is returned when a range starts at or past the
	// end of the file.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")

	// ErrVerdictAlreadyEmitted guards against a session terminating twice.
	ErrVerdictAlreadyEmitted = errors.New("session already emitted a terminal verdict")

	// ErrInvalidGrade is returned for unknown access grade values.
	ErrInvalidGrade = errors.New("invalid access grade")

	// ErrInvalidTrackAccess is returned for unknown track access requirements.
	ErrInvalidTrackAccess = errors.New("invalid track access requirement")

	// ErrInvalidRewardAmount is returned when a record's amount and reward
	// code disagree.
	ErrInvalidRewardAmount = errors.New("reward amount inconsistent with reward code")

	// ErrBudgetNotFound is returned when no budget row exists for a key.
	ErrBudgetNotFound = errors.New("monthly reward budget not configured")

	// ErrPlayNotFound is returned for unknown play record ids.
	ErrPlayNotFound = errors.New("play record not found")

	// ErrLedgerEntryNotFound is returned when a play has no ledger entry.
	ErrLedgerEntryNotFound = errors.New("reward ledger entry not found")

	// ErrTrackNotFound is returned by catalog lookups for unknown tracks.
	ErrTrackNotFound = errors.New("track not found")

	// ErrCompanyNotFound is returned by directory lookups for unknown companies.
	ErrCompanyNotFound = errors.New("company not found")
)
