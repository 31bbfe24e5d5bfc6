// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	resolvequeue "github.com/stackerlabs/stacker/internal/adapters/mq/queue"
	workerpool "github.com/stackerlabs/stacker/internal/adapters/mq/worker"
	"github.com/stackerlabs/stacker/internal/domain/guard"
	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/internal/identity"
	"github.com/stackerlabs/stacker/internal/leaderboard"
	"github.com/stackerlabs/stacker/internal/ledger"
	"github.com/stackerlabs/stacker/internal/session"
	"github.com/stackerlabs/stacker/pkg/logger"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

// Default submission limit constants.
const (
	defaultMaxScoreDelta = 999_999
	maxTxDelta           = 100
)

// Submitter writes a confirmed run on chain and returns the transaction hash.
type Submitter interface {
	Submit(ctx context.Context, wallet string, scoreAmount, txAmount int64) (string, error)
}

// SubmitRequest is one run submission from a client.
type SubmitRequest struct {
	SessionID  string
	Token      string
	Wallet     string
	ScoreDelta int64
	TxDelta    int64
	Username   string
}

// SubmitResult reports an accepted submission. LedgerPersisted is false when
// the chain write confirmed but the ledger append failed; the run is on chain
// either way.
type SubmitResult struct {
	TxHash          string
	LedgerPersisted bool
}

// Service implements the API dependencies for the submission system.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions *session.Manager
	chain    Submitter
	store    ledger.Store
	board    *leaderboard.Board
	resolver *identity.CachedResolver
	queue    resolvequeue.Queue
	pool     *workerpool.Pool

	// Configuration
	registry       identity.Resolver
	workerCount    int
	queueSize      int
	guard          *guard.Policy
	maxScoreDelta  int64
	operatorWallet string
	chainID        int64

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of resolve worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the resolve queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithGuardMultiplier sets the score guard multiplier. The guard accepts at
// most max(10, elapsedMs/200) * multiplier points per run.
func WithGuardMultiplier(m int64) Option {
	return func(s *Service) {
		if m > 0 {
			s.guard = guard.New(guard.WithMultiplier(m))
		}
	}
}

// WithGuardPolicy replaces the whole score plausibility policy.
func WithGuardPolicy(p *guard.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.guard = p
		}
	}
}

// WithMaxScoreDelta sets the absolute cap on a single run's score.
func WithMaxScoreDelta(max int64) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxScoreDelta = max
		}
	}
}

// WithRegistry attaches the username registry used to decorate leaderboard
// entries and run records.
func WithRegistry(r identity.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithChainInfo records the operator wallet and chain id for health reports.
func WithChainInfo(operator string, chainID int64) Option {
	return func(s *Service) {
		s.operatorWallet = operator
		s.chainID = chainID
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service over the given session manager, chain submitter
// and run ledger.
func New(sessions *session.Manager, chain Submitter, store ledger.Store, opts ...Option) *Service {
	s := &Service{
		sessions:      sessions,
		chain:         chain,
		store:         store,
		registry:      identity.NoopResolver{},
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     10000,
		guard:         guard.New(),
		maxScoreDelta: defaultMaxScoreDelta,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting submission service...")

	s.resolver = identity.NewCachedResolver(s.registry)
	s.board = leaderboard.New(s.store, leaderboard.WithResolver(s.resolver))
	s.queue = resolvequeue.NewInMemoryQueue(
		resolvequeue.WithCapacity(s.queueSize),
		resolvequeue.WithBufferSize(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.registry, s.resolver)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "submission service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int64("guardMultiplier", s.guard.Multiplier()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping submission service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "resolve pool shutdown", logger.Error(err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "ledger close", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "submission service stopped")
}

// StartSession mints a fresh play session for the wallet.
func (s *Service) StartSession(_ context.Context, wallet string) (session.Session, string, error) {
	if !types.ValidWallet(types.NormalizeWallet(wallet)) {
		return session.Session{}, "", fmt.Errorf("%w: %s", ErrInvalidInput, "bad wallet")
	}
	return s.sessions.StartSession(wallet)
}

// SubmitRun validates and records one completed run.
//
// The pipeline is strict about ordering: nothing reaches the ledger until the
// chain write is confirmed, and a chain failure releases the session so the
// client can retry with the same token. A ledger failure after chain success
// is logged and reported via LedgerPersisted; the chain write cannot be
// undone, so the submission still counts.
func (s *Service) SubmitRun(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return SubmitResult{}, ErrNotStarted
	}

	wallet := types.NormalizeWallet(req.Wallet)
	if !types.ValidWallet(wallet) {
		metrics.RecordSubmission(metrics.OutcomeClientFault)
		return SubmitResult{}, fmt.Errorf("%w: bad wallet", ErrInvalidInput)
	}
	if req.ScoreDelta < 0 || req.ScoreDelta > s.maxScoreDelta {
		metrics.RecordSubmission(metrics.OutcomeClientFault)
		return SubmitResult{}, fmt.Errorf("%w: score delta out of range", ErrInvalidInput)
	}
	txDelta := req.TxDelta
	if txDelta == 0 {
		txDelta = 1
	}
	if txDelta < 0 || txDelta > maxTxDelta {
		metrics.RecordSubmission(metrics.OutcomeClientFault)
		return SubmitResult{}, fmt.Errorf("%w: tx delta out of range", ErrInvalidInput)
	}

	payload, err := s.sessions.ValidateSubmission(ctx, req.Token, req.SessionID, wallet)
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeClientFault)
		return SubmitResult{}, err
	}

	elapsed := s.sessions.Elapsed(payload)
	if !s.guard.Plausible(elapsed, req.ScoreDelta) {
		// Validation consumed the session; rejection must leave no side
		// effect, so give it back.
		s.sessions.Release(ctx, payload.SessionID)
		metrics.RecordSubmission(metrics.OutcomeClientFault)
		s.logger.Warn(ctx, "suspicious score rejected",
			logger.String("wallet", string(wallet)),
			logger.Int64("scoreDelta", req.ScoreDelta),
			logger.Int64("elapsedMs", elapsed.Milliseconds()),
		)
		return SubmitResult{}, ErrSuspiciousScore
	}

	txHash, err := s.chain.Submit(ctx, string(wallet), req.ScoreDelta, txDelta)
	if err != nil {
		// The run never made it on chain; give the session back so the
		// client can retry.
		s.sessions.Release(ctx, payload.SessionID)
		metrics.RecordSubmission(metrics.OutcomeUpstreamFault)
		s.logger.Error(ctx, "chain submission failed",
			logger.String("wallet", string(wallet)),
			logger.Error(err),
		)
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrChainUnavailable, err)
	}

	result := SubmitResult{TxHash: txHash, LedgerPersisted: true}

	rec := types.RunRecord{
		Wallet:      wallet,
		Score:       req.ScoreDelta,
		UnixMs:      time.Now().UnixMilli(),
		TxReference: txHash,
		Username:    req.Username,
	}
	if err := s.store.AppendRun(ctx, rec); err != nil {
		// Confirmed on chain but lost from the ledger; log loudly and
		// tell the client which half happened.
		result.LedgerPersisted = false
		metrics.RecordLedgerAppendFailure()
		s.logger.Error(ctx, "ledger append failed after chain confirmation",
			logger.String("wallet", string(wallet)),
			logger.String("txHash", txHash),
			logger.Error(err),
		)
	}

	if req.Username != "" {
		s.resolver.Warm(wallet, req.Username)
	} else if _, cached := s.resolver.Peek(wallet); !cached {
		// Warm the username cache off the request path.
		s.queue.Enqueue(ctx, resolvequeue.Job{Wallet: wallet})
	}

	metrics.RecordSubmission(metrics.OutcomeAccepted)
	return result, nil
}

// Leaderboard returns the top entries, ranked from 1.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	s.mu.RLock()
	board := s.board
	s.mu.RUnlock()
	if board == nil {
		return nil, ErrNotStarted
	}
	return board.TopN(ctx, limit)
}

// History returns the wallet's recent runs, newest first.
func (s *Service) History(ctx context.Context, wallet string, limit int) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	board := s.board
	s.mu.RUnlock()
	if board == nil {
		return nil, ErrNotStarted
	}
	return board.History(ctx, types.Wallet(wallet), limit)
}

// ChainInfo reports the operator wallet and chain id for health checks.
func (s *Service) ChainInfo() (string, int64) {
	return s.operatorWallet, s.chainID
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalWallets := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalWallets"] = totalWallets
		stats["usernameCacheSize"] = s.resolver.Size()

		metrics.UpdateResolveQueueSize(queueLen)
		metrics.UpdateTrackedWallets(totalWallets)
	}

	return stats
}
