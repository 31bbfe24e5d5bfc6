// Package dedupe tracks consumed session identifiers so a signed session
// token cannot be replayed for a second submission.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper records consumed IDs to enforce at-most-once submission per session.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was already consumed and
	// records it if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set. Used when a submission was
	// consumed but the downstream chain write failed, so the client may
	// retry with the same session.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id string
	ts time.Time
}

// seenSet implements Deduper with a TTL window and a capacity bound.
// Expired and over-capacity entries are evicted oldest-first; session tokens
// older than the TTL cannot pass the timing gate twice anyway, so dropping
// them does not widen the replay window.
type seenSet struct {
	ttl      time.Duration
	capacity int
	nowFn    func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List

	size atomic.Int64
}

const (
	defaultTTL      = 10 * time.Minute
	defaultCapacity = 50_000
)

// NewSeenSet creates a bounded seen-ID set with configuration options.
func NewSeenSet(opts ...Option) Deduper {
	s := &seenSet{
		ttl:      defaultTTL,
		capacity: defaultCapacity,
		nowFn:    time.Now,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *seenSet) SeenAndRecord(_ context.Context, id string) bool {
	now := s.nowFn()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(now)
	if _, ok := s.entries[id]; ok {
		return true
	}
	for s.capacity > 0 && s.order.Len() >= s.capacity {
		s.evictFront()
	}
	s.entries[id] = s.order.PushBack(entry{id: id, ts: now})
	s.size.Store(int64(len(s.entries)))
	return false
}

func (s *seenSet) Unrecord(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[id]; ok {
		s.order.Remove(elem)
		delete(s.entries, id)
		s.size.Store(int64(len(s.entries)))
	}
}

func (s *seenSet) Size() int64 {
	return s.size.Load()
}

// evictExpired drops entries older than the TTL window.
// Must be called with s.mu held.
func (s *seenSet) evictExpired(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	cutoff := now.Add(-s.ttl)
	for {
		front := s.order.Front()
		if front == nil {
			return
		}
		e := front.Value.(entry)
		if !e.ts.Before(cutoff) {
			s.size.Store(int64(len(s.entries)))
			return
		}
		s.order.Remove(front)
		delete(s.entries, e.id)
	}
}

// evictFront drops the oldest entry. Must be called with s.mu held.
func (s *seenSet) evictFront() {
	front := s.order.Front()
	if front == nil {
		return
	}
	e := front.Value.(entry)
	s.order.Remove(front)
	delete(s.entries, e.id)
}
