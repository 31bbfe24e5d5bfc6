package service

import "errors"

// Sentinel kinds for submission errors. Handlers map these onto HTTP status
// codes; everything else is treated as an internal fault.
var (
	// ErrInvalidInput reports a malformed request (bad wallet, score or
	// transaction delta outside the accepted range).
	ErrInvalidInput = errors.New("invalid submission input")

	// ErrSuspiciousScore reports a score delta that exceeds what the
	// session's elapsed time could plausibly produce.
	ErrSuspiciousScore = errors.New("score too high for elapsed time")

	// ErrChainUnavailable reports that the on-chain write could not be
	// confirmed. The run was not recorded anywhere.
	ErrChainUnavailable = errors.New("chain submission failed")

	// ErrNotStarted reports an operation against a service that has not
	// been started.
	ErrNotStarted = errors.New("service not started")
)
