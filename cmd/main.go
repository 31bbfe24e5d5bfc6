package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/stackerlabs/stacker/internal/adapters/http/api"
	"github.com/stackerlabs/stacker/internal/adapters/http/site"
	"github.com/stackerlabs/stacker/internal/adapters/http/swagger"
	app "github.com/stackerlabs/stacker/internal/app"
	"github.com/stackerlabs/stacker/internal/chain"
	"github.com/stackerlabs/stacker/internal/config"
	"github.com/stackerlabs/stacker/internal/domain/dedupe"
	"github.com/stackerlabs/stacker/internal/identity"
	"github.com/stackerlabs/stacker/internal/ledger"
	"github.com/stackerlabs/stacker/internal/session"
	"github.com/stackerlabs/stacker/pkg/logger"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 90 * time.Second // submits wait for chain confirmation
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, cleanup, err := buildService(ctx, cfg, loggerInstance)
	if err != nil {
		os.Stderr.WriteString("failed to build service: " + err.Error() + "\n")
		return
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	// API docs and the embedded landing page.
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	// The game client runs in a browser, usually on another origin.
	cors := api.NewCORSPolicy(splitOrigins(cfg.AllowedOrigins))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.CORS(cors, mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// splitOrigins parses the comma-separated allowed-origins setting.
func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// buildService wires the chain submitter, run ledger, session manager and
// username resolver into the application service. The returned cleanup
// releases the RPC connection.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	key, err := chain.ParsePrivateKey(cfg.OperatorKey)
	if err != nil {
		return nil, nil, err
	}

	client, err := chain.Dial(cfg.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { client.Close() }

	submitter, err := chain.NewSubmitter(client, key,
		common.HexToAddress(cfg.ContractAddr),
		big.NewInt(cfg.ChainID),
		chain.WithGasLimit(cfg.GasLimit),
		chain.WithConfirmWait(time.Duration(cfg.ConfirmWaitMs)*time.Millisecond),
		chain.WithLogger(log.Named("chain")),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var store ledger.Store
	switch cfg.StoreBackend {
	case "leveldb":
		store, err = ledger.NewLevelStore(cfg.StorePath,
			ledger.WithLevelHistoryLimit(cfg.HistoryLimit),
		)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		log.Info(ctx, "using leveldb run ledger", logger.String("path", cfg.StorePath))
	default:
		store = ledger.NewMemStore(ledger.WithHistoryLimit(cfg.HistoryLimit))
		log.Info(ctx, "using in-memory run ledger")
	}

	sessionOpts := []session.Option{
		session.WithMinDuration(time.Duration(cfg.MinSessionMs) * time.Millisecond),
	}
	if cfg.SingleUseSessions {
		sessionOpts = append(sessionOpts, session.WithSingleUse(
			dedupe.NewSeenSet(dedupe.WithMaxSize(cfg.SeenSessionCap)),
		))
	}
	sessions := session.NewManager([]byte(cfg.SessionSecret), sessionOpts...)

	var registry identity.Resolver = identity.NoopResolver{}
	if cfg.ResolverURL != "" {
		registry, err = identity.NewHTTPResolver(cfg.ResolverURL,
			identity.WithTimeout(time.Duration(cfg.ResolverTimeoutMs)*time.Millisecond),
		)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	svc := app.New(sessions, submitter, store,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.ResolveQueueSize),
		app.WithGuardMultiplier(cfg.GuardMultiplier),
		app.WithMaxScoreDelta(cfg.MaxScoreDelta),
		app.WithRegistry(registry),
		app.WithChainInfo(submitter.OperatorAddress().Hex(), cfg.ChainID),
	)
	return svc, cleanup, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	// GetStats already pushes the gauges it derives.
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateResolveQueueSize(queueLen)
	}

	if totalWallets, ok := stats["totalWallets"].(int); ok {
		metrics.UpdateTrackedWallets(totalWallets)
	}
}
