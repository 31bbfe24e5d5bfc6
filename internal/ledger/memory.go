package ledger

import (
	"context"
	"sync"

	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

// MemStore is the in-memory Store implementation. A single mutex makes each
// append atomic across the total increment, the history prepend and the
// retention trim, so concurrent appends cannot lose updates.
type MemStore struct {
	mu           sync.RWMutex
	totals       map[types.Wallet]int64
	order        []types.Wallet
	history      map[types.Wallet][]types.RunRecord
	historyLimit int
	closed       bool
}

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithHistoryLimit sets the per-wallet retention bound.
func WithHistoryLimit(limit int) MemOption {
	return func(s *MemStore) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// NewMemStore creates an empty in-memory run ledger.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		totals:       make(map[types.Wallet]int64),
		history:      make(map[types.Wallet][]types.RunRecord),
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendRun records one completed run.
func (s *MemStore) AppendRun(_ context.Context, rec types.RunRecord) error {
	wallet := types.NormalizeWallet(rec.Wallet)
	if wallet == "" || rec.Score < 0 {
		return ErrInvalidRecord
	}
	rec.Wallet = wallet

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, known := s.totals[wallet]; !known {
		s.order = append(s.order, wallet)
	}
	s.totals[wallet] += rec.Score

	runs := append([]types.RunRecord{rec}, s.history[wallet]...)
	if len(runs) > s.historyLimit {
		runs = runs[:s.historyLimit]
	}
	s.history[wallet] = runs

	metrics.RecordLedgerAppend()
	metrics.UpdateTrackedWallets(len(s.totals))
	return nil
}

// Totals returns lifetime totals in first-seen order.
func (s *MemStore) Totals(_ context.Context) ([]types.WalletTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]types.WalletTotal, 0, len(s.order))
	for _, wallet := range s.order {
		out = append(out, types.WalletTotal{Wallet: wallet, Total: s.totals[wallet]})
	}
	return out, nil
}

// History returns the wallet's runs newest-first.
func (s *MemStore) History(_ context.Context, wallet types.Wallet, limit int) ([]types.RunRecord, error) {
	wallet = types.NormalizeWallet(wallet)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	runs := s.history[wallet]
	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}
	out := make([]types.RunRecord, len(runs))
	copy(out, runs)
	return out, nil
}

// Count returns the number of tracked wallets.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.totals)
}

// Close marks the store closed. Subsequent operations fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// compile-time interface check
var _ Store = (*MemStore)(nil)
