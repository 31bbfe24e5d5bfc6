// Package ledger is the append-only store of completed runs and the derived
// per-wallet lifetime totals. The ledger owns the canonical facts; every
// leaderboard view is recomputable from it.
package ledger

import (
	"context"

	"github.com/stackerlabs/stacker/internal/domain/types"
)

// DefaultHistoryLimit bounds the per-wallet history retained by a store.
// Oldest records are trimmed first once the bound is exceeded.
const DefaultHistoryLimit = 200

// Store provides read/append access to the run ledger.
//
// AppendRun must be safe under concurrent appends: the wallet total is an
// atomically maintained aggregate that always equals the sum of the wallet's
// run scores. Implementations must never lose an increment to a concurrent
// read-modify-write.
type Store interface {
	// AppendRun records one completed run. Records are immutable once
	// appended; the only removal is the oldest-first retention trim.
	AppendRun(ctx context.Context, rec types.RunRecord) error

	// Totals returns every wallet's lifetime total in first-seen append
	// order. The order is stable and is what breaks leaderboard ties.
	Totals(ctx context.Context) ([]types.WalletTotal, error)

	// History returns the wallet's run records newest-first, at most limit.
	History(ctx context.Context, wallet types.Wallet, limit int) ([]types.RunRecord, error)

	// Count returns the number of wallets with at least one run record.
	Count(ctx context.Context) int

	// Close releases the store's resources.
	Close() error
}
