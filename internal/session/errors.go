package session

import "errors"

// Sentinel kinds for session validation errors.
var (
	// ErrInvalidSession covers bad signatures, malformed tokens and
	// session/player binding mismatches. One error for all of them so the
	// API does not leak which check failed.
	ErrInvalidSession = errors.New("invalid session")

	// ErrSessionTooShort reports a submission arriving before the session's
	// minimum duration elapsed.
	ErrSessionTooShort = errors.New("session too short")

	// ErrSessionReplayed reports a session token that was already consumed
	// by an earlier submission.
	ErrSessionReplayed = errors.New("session already used")
)
