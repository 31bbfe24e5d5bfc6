package ledger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

// Key layout:
//
//	total:<wallet>            -> big-endian uint64 lifetime total
//	seq:<wallet>              -> big-endian uint64 append counter
//	run:<wallet>:<revseq>     -> JSON RunRecord; revseq = MaxUint64-seq,
//	                             zero-padded, so ascending key order is
//	                             newest-first
//	wallet:<order>            -> wallet address; <order> zero-padded
//	                             first-seen counter, so ascending key order
//	                             is first-seen order
//	meta:nextorder            -> big-endian uint64 next first-seen slot
const (
	totalPrefix  = "total:"
	seqPrefix    = "seq:"
	runPrefix    = "run:"
	walletPrefix = "wallet:"
	nextOrderKey = "meta:nextorder"
)

const writeStripes = 64

// LevelStore is the persistent Store implementation on LevelDB. Appends for
// one wallet are serialized through a striped mutex so the total increment,
// the history row and the trim commit as a single batch; appends for
// different wallets proceed in parallel.
type LevelStore struct {
	db           *leveldb.DB
	historyLimit int

	stripes [writeStripes]sync.Mutex
	orderMu sync.Mutex
}

// LevelOption applies a configuration option to the LevelStore.
type LevelOption func(*LevelStore)

// WithLevelHistoryLimit sets the per-wallet retention bound.
func WithLevelHistoryLimit(limit int) LevelOption {
	return func(s *LevelStore) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// NewLevelStore opens (or creates) a LevelDB-backed run ledger at path.
func NewLevelStore(path string, opts ...LevelOption) (*LevelStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("ledger store path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	s := &LevelStore{
		db:           db,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AppendRun records one completed run.
func (s *LevelStore) AppendRun(_ context.Context, rec types.RunRecord) error {
	wallet := types.NormalizeWallet(rec.Wallet)
	if wallet == "" || rec.Score < 0 {
		return ErrInvalidRecord
	}
	rec.Wallet = wallet

	stripe := &s.stripes[stripeFor(wallet)]
	stripe.Lock()
	defer stripe.Unlock()

	total, found, err := s.readUint64(totalPrefix + wallet)
	if err != nil {
		return fmt.Errorf("load total: %w", err)
	}
	seq, _, err := s.readUint64(seqPrefix + wallet)
	if err != nil {
		return fmt.Errorf("load sequence: %w", err)
	}

	if !found {
		if err := s.registerWallet(wallet); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(totalPrefix+wallet), encodeUint64(total+uint64(rec.Score)))
	batch.Put([]byte(seqPrefix+wallet), encodeUint64(seq+1))
	batch.Put([]byte(runKey(wallet, seq)), payload)
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("append run: %w", err)
	}

	if err := s.trim(wallet); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	metrics.RecordLedgerAppend()
	return nil
}

// Totals returns lifetime totals in first-seen order.
func (s *LevelStore) Totals(_ context.Context) ([]types.WalletTotal, error) {
	var out []types.WalletTotal
	iter := s.db.NewIterator(util.BytesPrefix([]byte(walletPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		wallet := string(iter.Value())
		total, _, err := s.readUint64(totalPrefix + wallet)
		if err != nil {
			return nil, fmt.Errorf("load total for %s: %w", wallet, err)
		}
		out = append(out, types.WalletTotal{Wallet: wallet, Total: int64(total)})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan wallets: %w", err)
	}
	return out, nil
}

// History returns the wallet's runs newest-first.
func (s *LevelStore) History(_ context.Context, wallet types.Wallet, limit int) ([]types.RunRecord, error) {
	wallet = types.NormalizeWallet(wallet)

	var out []types.RunRecord
	iter := s.db.NewIterator(util.BytesPrefix([]byte(runPrefix+wallet+":")), nil)
	defer iter.Release()
	for iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var rec types.RunRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode run record: %w", err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return out, nil
}

// Count returns the number of tracked wallets.
func (s *LevelStore) Count(_ context.Context) int {
	n := 0
	iter := s.db.NewIterator(util.BytesPrefix([]byte(walletPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		n++
	}
	return n
}

// Close closes the underlying database.
func (s *LevelStore) Close() error {
	return s.db.Close()
}

// registerWallet assigns the wallet its first-seen order slot.
func (s *LevelStore) registerWallet(wallet types.Wallet) error {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	next, _, err := s.readUint64(nextOrderKey)
	if err != nil {
		return fmt.Errorf("load order counter: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put([]byte(fmt.Sprintf("%s%020d", walletPrefix, next)), []byte(wallet))
	batch.Put([]byte(nextOrderKey), encodeUint64(next+1))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("register wallet: %w", err)
	}
	return nil
}

// trim removes the oldest run rows beyond the retention bound. Oldest rows
// sort last under the reverse-sequence key layout.
func (s *LevelStore) trim(wallet types.Wallet) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(runPrefix+wallet+":")), nil)
	defer iter.Release()

	var excess [][]byte
	n := 0
	for iter.Next() {
		n++
		if n > s.historyLimit {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			excess = append(excess, key)
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	if len(excess) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, key := range excess {
		batch.Delete(key)
	}
	return s.db.Write(batch, nil)
}

func (s *LevelStore) readUint64(key string) (uint64, bool, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(value) != 8 {
		return 0, false, fmt.Errorf("corrupt counter at %s", key)
	}
	return binary.BigEndian.Uint64(value), true, nil
}

func runKey(wallet types.Wallet, seq uint64) string {
	return fmt.Sprintf("%s%s:%020d", runPrefix, wallet, math.MaxUint64-seq)
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func stripeFor(wallet types.Wallet) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(wallet))
	return int(h.Sum32() % writeStripes)
}

// compile-time interface check
var _ Store = (*LevelStore)(nil)
