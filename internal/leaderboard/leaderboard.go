// Package leaderboard derives ranked views from the run ledger. Views are
// computed on demand; the ledger totals are the only source of truth, so two
// reads with no writes in between always agree.
package leaderboard

import (
	"context"
	"sort"

	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/internal/ledger"
	"github.com/stackerlabs/stacker/pkg/logger"
)

// MaxLimit caps the number of entries any single query may return.
const MaxLimit = 50

// DefaultLimit is used when the caller asks for zero or fewer entries.
const DefaultLimit = 50

// Resolver decorates entries with usernames. Lookups are best-effort; a
// failure leaves the name empty and never fails the view.
type Resolver interface {
	Resolve(ctx context.Context, wallet types.Wallet) (string, error)
}

// Board computes ranked leaderboard views over a ledger store.
type Board struct {
	store    ledger.Store
	resolver Resolver
	log      logger.Logger
}

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithResolver attaches a username resolver for entry decoration.
func WithResolver(r Resolver) Option {
	return func(b *Board) {
		if r != nil {
			b.resolver = r
		}
	}
}

// New creates a leaderboard view over the given store.
func New(store ledger.Store, opts ...Option) *Board {
	b := &Board{
		store: store,
		log:   logger.Named("leaderboard"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// TopN returns the highest-total wallets, ranked from 1. Equal totals keep
// their first-seen ledger order, so ranks never flap between reads.
func (b *Board) TopN(ctx context.Context, limit int) ([]types.Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	totals, err := b.store.Totals(ctx)
	if err != nil {
		return nil, err
	}

	// Totals arrive in first-seen order; a stable sort preserves that
	// order among equal totals.
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total > totals[j].Total
	})
	if len(totals) > limit {
		totals = totals[:limit]
	}

	entries := make([]types.Entry, 0, len(totals))
	for i, wt := range totals {
		entry := types.Entry{
			Rank:       i + 1,
			Wallet:     wt.Wallet,
			TotalScore: wt.Total,
		}
		if b.resolver != nil {
			name, rerr := b.resolver.Resolve(ctx, wt.Wallet)
			if rerr != nil {
				b.log.Debug(ctx, "username lookup failed",
					logger.String("wallet", string(wt.Wallet)),
					logger.Error(rerr),
				)
			} else {
				entry.Username = name
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// History returns the wallet's recent runs, newest first.
func (b *Board) History(ctx context.Context, wallet types.Wallet, limit int) ([]types.HistoryEntry, error) {
	wallet = types.NormalizeWallet(wallet)
	if !types.ValidWallet(wallet) {
		return nil, types.ErrBadWallet
	}
	if limit <= 0 || limit > ledger.DefaultHistoryLimit {
		limit = ledger.DefaultHistoryLimit
	}

	runs, err := b.store.History(ctx, wallet, limit)
	if err != nil {
		return nil, err
	}

	out := make([]types.HistoryEntry, 0, len(runs))
	for _, r := range runs {
		out = append(out, types.HistoryEntry{
			UnixMs:      r.UnixMs,
			Score:       r.Score,
			TxReference: r.TxReference,
		})
	}
	return out, nil
}
