package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if STACKER_CONFIG is set
//  3. env (prefix STACKER_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("STACKER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: STACKER_ADDR, STACKER_RPC_URL, ...
	// Map env keys like STACKER_RPC_URL -> rpc_url (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("STACKER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "stacker_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot start with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SessionSecret == "":
		return fmt.Errorf("%w: session_secret is required", ErrInvalidConfig)
	case c.RPCURL == "":
		return fmt.Errorf("%w: rpc_url is required", ErrInvalidConfig)
	case c.ContractAddr == "":
		return fmt.Errorf("%w: contract_addr is required", ErrInvalidConfig)
	case c.OperatorKey == "":
		return fmt.Errorf("%w: operator_key is required", ErrInvalidConfig)
	case c.ChainID <= 0:
		return fmt.Errorf("%w: chain_id must be positive", ErrInvalidConfig)
	case c.MinSessionMs < 0:
		return fmt.Errorf("%w: min_session_ms must not be negative", ErrInvalidConfig)
	case c.GuardMultiplier <= 0:
		return fmt.Errorf("%w: guard_multiplier must be positive", ErrInvalidConfig)
	}
	switch c.StoreBackend {
	case "memory":
	case "leveldb":
		if c.StorePath == "" {
			return fmt.Errorf("%w: store_path is required for the leveldb backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
