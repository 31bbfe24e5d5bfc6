package identity

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

const (
	defaultCacheTTL = 10 * time.Minute
	defaultCacheCap = 10_000
)

type cacheEntry struct {
	wallet   types.Wallet
	name     string
	storedAt time.Time
}

// CachedResolver decorates a Resolver with a bounded TTL cache. Negative
// results (no registered name) are cached too, so unregistered wallets do not
// hammer the registry on every leaderboard read.
type CachedResolver struct {
	next Resolver

	mu      sync.Mutex
	entries map[types.Wallet]*list.Element
	order   *list.List
	ttl     time.Duration
	maxSize int
	nowFn   func() time.Time
}

// CacheOption applies a configuration option to the CachedResolver.
type CacheOption func(*CachedResolver)

// WithCacheTTL sets how long a resolved name stays fresh.
func WithCacheTTL(d time.Duration) CacheOption {
	return func(c *CachedResolver) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithCacheSize bounds the number of cached wallets.
func WithCacheSize(n int) CacheOption {
	return func(c *CachedResolver) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithCacheNowFunc replaces the clock. Test hook.
func WithCacheNowFunc(fn func() time.Time) CacheOption {
	return func(c *CachedResolver) {
		if fn != nil {
			c.nowFn = fn
		}
	}
}

// NewCachedResolver wraps next with a TTL cache.
func NewCachedResolver(next Resolver, opts ...CacheOption) *CachedResolver {
	c := &CachedResolver{
		next:    next,
		entries: make(map[types.Wallet]*list.Element),
		order:   list.New(),
		ttl:     defaultCacheTTL,
		maxSize: defaultCacheCap,
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve serves from the cache when fresh, otherwise delegates. A delegate
// failure leaves any stale cached name in place and is reported to the caller.
func (c *CachedResolver) Resolve(ctx context.Context, wallet types.Wallet) (string, error) {
	wallet = types.NormalizeWallet(wallet)

	if name, ok := c.lookup(wallet); ok {
		metrics.RecordResolverHit()
		return name, nil
	}
	metrics.RecordResolverMiss()

	name, err := c.next.Resolve(ctx, wallet)
	if err != nil {
		return "", err
	}
	c.store(wallet, name)
	return name, nil
}

// Warm inserts a known name directly, bypassing the delegate. Used by the
// background resolve workers.
func (c *CachedResolver) Warm(wallet types.Wallet, name string) {
	c.store(types.NormalizeWallet(wallet), name)
}

// Peek reports the cached name without touching the delegate or the miss
// counters.
func (c *CachedResolver) Peek(wallet types.Wallet) (string, bool) {
	return c.lookup(types.NormalizeWallet(wallet))
}

// Size returns the number of cached wallets.
func (c *CachedResolver) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachedResolver) lookup(wallet types.Wallet) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[wallet]
	if !ok {
		return "", false
	}
	entry := elem.Value.(*cacheEntry)
	if c.nowFn().Sub(entry.storedAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.entries, wallet)
		return "", false
	}
	return entry.name, true
}

func (c *CachedResolver) store(wallet types.Wallet, name string) {
	if wallet == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[wallet]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.name = name
		entry.storedAt = c.nowFn()
		c.order.MoveToBack(elem)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).wallet)
	}

	elem := c.order.PushBack(&cacheEntry{wallet: wallet, name: name, storedAt: c.nowFn()})
	c.entries[wallet] = elem
}

// compile-time interface checks
var (
	_ Resolver = (*HTTPResolver)(nil)
	_ Resolver = (*CachedResolver)(nil)
	_ Resolver = NoopResolver{}
)
