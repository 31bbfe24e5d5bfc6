package chain

import "errors"

// Sentinel kinds for chain submission errors.
var (
	// ErrSubmitFailed wraps every failure mode of the on-chain write so the
	// caller sees a single upstream fault with the cause attached.
	ErrSubmitFailed = errors.New("chain submission failed")

	// ErrReverted reports a mined transaction with a failed receipt status.
	ErrReverted = errors.New("transaction reverted")

	// ErrConfirmTimeout reports that no receipt was observed inside the
	// confirmation window.
	ErrConfirmTimeout = errors.New("confirmation timed out")
)
