// Package identity resolves wallet addresses to display usernames through an
// external registry. Resolution is best-effort decoration: a wallet with no
// registered name, or a registry outage, yields an empty name and never fails
// the caller.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/pkg/logger"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

const (
	defaultTimeout      = 3 * time.Second
	maxResponseBytes    = 64 * 1024
	resolverComponentID = "identity"
)

// Resolver maps a wallet to its registered username. An empty name with a nil
// error means the wallet has no registration.
type Resolver interface {
	Resolve(ctx context.Context, wallet types.Wallet) (string, error)
}

// registryResponse is the wire shape of the wallet registry's check endpoint.
type registryResponse struct {
	HasUsername bool `json:"hasUsername"`
	User        struct {
		Username string `json:"username"`
	} `json:"user"`
}

// HTTPResolver queries a wallet registry endpoint of the form
// GET <base>?wallet=<address>.
type HTTPResolver struct {
	base   string
	client *http.Client
	log    logger.Logger
}

// HTTPOption applies a configuration option to the HTTPResolver.
type HTTPOption func(*HTTPResolver)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(r *HTTPResolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout bounds each registry lookup.
func WithTimeout(d time.Duration) HTTPOption {
	return func(r *HTTPResolver) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

// NewHTTPResolver builds a resolver against the given registry base URL.
func NewHTTPResolver(base string, opts ...HTTPOption) (*HTTPResolver, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("registry base URL required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse registry URL: %w", err)
	}
	r := &HTTPResolver{
		base:   base,
		client: &http.Client{Timeout: defaultTimeout},
		log:    logger.Named(resolverComponentID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve looks the wallet up in the registry.
func (r *HTTPResolver) Resolve(ctx context.Context, wallet types.Wallet) (string, error) {
	wallet = types.NormalizeWallet(wallet)
	if wallet == "" {
		return "", fmt.Errorf("empty wallet")
	}

	endpoint := r.base + "?wallet=" + url.QueryEscape(string(wallet))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build registry request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.RecordResolverError()
		return "", fmt.Errorf("query registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordResolverError()
		return "", fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordResolverError()
		return "", fmt.Errorf("read registry response: %w", err)
	}

	var parsed registryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.RecordResolverError()
		return "", fmt.Errorf("decode registry response: %w", err)
	}

	if !parsed.HasUsername {
		return "", nil
	}
	return parsed.User.Username, nil
}

// NoopResolver resolves every wallet to the empty name. Used when no registry
// is configured.
type NoopResolver struct{}

func (NoopResolver) Resolve(context.Context, types.Wallet) (string, error) {
	return "", nil
}
