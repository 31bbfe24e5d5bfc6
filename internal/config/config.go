// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SessionSecret signs play session tokens. Required.
	SessionSecret string `koanf:"session_secret"`

	// MinSessionMs gates submissions arriving too soon after session start.
	MinSessionMs int64 `koanf:"min_session_ms"`

	// SingleUseSessions enforces at-most-once consumption of each session.
	SingleUseSessions bool `koanf:"single_use_sessions"`

	// SeenSessionCap bounds the consumed-session set.
	SeenSessionCap int `koanf:"seen_session_cap"`

	// GuardMultiplier scales the per-run score ceiling.
	GuardMultiplier int64 `koanf:"guard_multiplier"`

	// MaxScoreDelta is the absolute cap on a single run's score.
	MaxScoreDelta int64 `koanf:"max_score_delta"`

	// RPCURL is the chain RPC endpoint. Required.
	RPCURL string `koanf:"rpc_url"`

	// ContractAddr is the game contract address. Required.
	ContractAddr string `koanf:"contract_addr"`

	// OperatorKey is the hex private key the service submits with. Required.
	OperatorKey string `koanf:"operator_key"`

	// ChainID identifies the target chain.
	ChainID int64 `koanf:"chain_id"`

	// GasLimit bounds each submitted transaction.
	GasLimit uint64 `koanf:"gas_limit"`

	// ConfirmWaitMs bounds the receipt confirmation window.
	ConfirmWaitMs int64 `koanf:"confirm_wait_ms"`

	// StoreBackend selects the run ledger backend: memory or leveldb.
	StoreBackend string `koanf:"store_backend"`

	// StorePath locates the leveldb ledger on disk.
	StorePath string `koanf:"store_path"`

	// HistoryLimit bounds the per-wallet run history.
	HistoryLimit int `koanf:"history_limit"`

	// ResolverURL points at the username registry's check endpoint.
	// Empty disables username resolution.
	ResolverURL string `koanf:"resolver_url"`

	// ResolverTimeoutMs bounds each registry lookup.
	ResolverTimeoutMs int64 `koanf:"resolver_timeout_ms"`

	// ResolveQueueSize bounds the in-memory wallet-resolve queue.
	ResolveQueueSize int `koanf:"resolve_queue_size"`

	// WorkerCount sets the number of resolve workers.
	WorkerCount int `koanf:"worker_count"`

	// AllowedOrigins is a comma-separated list of browser origins allowed
	// by CORS. Empty allows every origin; localhost is always allowed.
	AllowedOrigins string `koanf:"allowed_origins"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8080",
		MinSessionMs:      3000,
		SingleUseSessions: true,
		SeenSessionCap:    50_000,
		GuardMultiplier:   10,
		MaxScoreDelta:     999_999,
		ChainID:           10143,
		GasLimit:          200_000,
		ConfirmWaitMs:     60_000,
		StoreBackend:      "memory",
		StorePath:         "data/ledger",
		HistoryLimit:      200,
		ResolverTimeoutMs: 3000,
		ResolveQueueSize:  10_000,
		WorkerCount:       runtime.NumCPU() * 2,
	}
}
