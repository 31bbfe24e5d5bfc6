// Package dedupe tracks consumed session identifiers so a signed session
// token cannot be replayed for a second submission.
package dedupe

import "time"

// Option applies a configuration option to the seen set.
type Option func(*seenSet)

// WithMaxSize bounds the number of IDs kept in memory.
// maxSize <= 0 removes the capacity bound (TTL eviction still applies).
func WithMaxSize(maxSize int) Option {
	return func(s *seenSet) {
		s.capacity = maxSize
	}
}

// WithTTL sets how long a consumed ID is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(s *seenSet) {
		s.ttl = ttl
	}
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *seenSet) {
		if now != nil {
			s.nowFn = now
		}
	}
}
