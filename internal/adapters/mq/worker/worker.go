// Package worker runs the background wallet-resolve pool. Workers drain the
// resolve queue, look each wallet up in the username registry and warm the
// shared cache so leaderboard reads rarely pay a registry round trip.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/stackerlabs/stacker/internal/adapters/mq/queue"
	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/pkg/logger"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Resolver looks a wallet's username up in the registry.
type Resolver interface {
	Resolve(ctx context.Context, wallet types.Wallet) (string, error)
}

// Warmer stores a resolved name so later reads skip the registry.
type Warmer interface {
	Warm(wallet types.Wallet, name string)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes wallet-resolve jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// ResolveWorker implements Worker for resolving wallet usernames.
type ResolveWorker struct {
	queue    Queue
	resolver Resolver
	warmer   Warmer
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewResolveWorker creates a new worker with configuration options.
func NewResolveWorker(q Queue, resolver Resolver, warmer Warmer, opts ...Option) *ResolveWorker {
	w := &ResolveWorker{
		queue:    q,
		resolver: resolver,
		warmer:   warmer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("resolve-worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *ResolveWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error resolving wallet", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *ResolveWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob resolves a single wallet and warms the cache. An unregistered
// wallet is a valid outcome; the empty name is cached so the registry is not
// asked again until the entry expires.
func (w *ResolveWorker) processJob(ctx context.Context, job queue.Job) error {
	name, err := w.resolver.Resolve(ctx, job.Wallet)
	if err != nil {
		metrics.RecordErrorByComponent("resolve_worker", "registry_error")
		return fmt.Errorf("resolve %s: %w", job.Wallet, err)
	}
	w.warmer.Warm(job.Wallet, name)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*ResolveWorker
	queue    Queue
	resolver Resolver
	warmer   Warmer

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, resolver Resolver, warmer Warmer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*ResolveWorker, workerCount),
		queue:    q,
		resolver: resolver,
		warmer:   warmer,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("resolve-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewResolveWorker(
			q,
			resolver,
			warmer,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateResolveWorkers(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateResolveWorkers(0)
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Close the queue first so workers drain and exit.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateResolveWorkers(0)
	return nil
}
