package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	// ErrInvalidRecord reports a record that may not enter the ledger
	// (empty wallet or negative score).
	ErrInvalidRecord = errors.New("invalid run record")

	// ErrClosed reports an operation against a closed store.
	ErrClosed = errors.New("ledger store closed")
)
