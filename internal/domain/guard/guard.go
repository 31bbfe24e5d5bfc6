// Package guard defines the plausibility policy for submitted run scores.
package guard

import "time"

// Default policy configuration constants.
const (
	defaultMultiplier    = 10
	defaultBaseAllowance = 10
	defaultMsPerPoint    = 200
)

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithMultiplier sets the per-game score multiplier. A stack game where
// every block is worth ten points runs with a multiplier of ten.
func WithMultiplier(m int64) Option {
	return func(p *Policy) {
		if m > 0 {
			p.multiplier = m
		}
	}
}

// WithBaseAllowance sets the minimum number of base points any run may
// claim regardless of how short it was.
func WithBaseAllowance(n int64) Option {
	return func(p *Policy) {
		if n > 0 {
			p.baseAllowance = n
		}
	}
}

// WithMsPerPoint sets how many milliseconds of play earn one base point.
func WithMsPerPoint(ms int64) Option {
	return func(p *Policy) {
		if ms > 0 {
			p.msPerPoint = ms
		}
	}
}

// Policy bounds how many points a run of a given length can plausibly
// score. A human placing blocks cannot bank points faster than the game
// hands them out, so anything above the ceiling is treated as forged.
type Policy struct {
	multiplier    int64
	baseAllowance int64
	msPerPoint    int64
}

// New creates a scoring policy with configuration options.
func New(opts ...Option) *Policy {
	p := &Policy{
		multiplier:    defaultMultiplier,
		baseAllowance: defaultBaseAllowance,
		msPerPoint:    defaultMsPerPoint,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// MaxAllowed returns the score ceiling for a run of the given elapsed time.
// The base allowance keeps very short runs from rounding down to a zero
// ceiling.
func (p *Policy) MaxAllowed(elapsed time.Duration) int64 {
	base := elapsed.Milliseconds() / p.msPerPoint
	if base < p.baseAllowance {
		base = p.baseAllowance
	}
	return base * p.multiplier
}

// Plausible reports whether a run of the given length could have earned
// the claimed score.
func (p *Policy) Plausible(elapsed time.Duration, score int64) bool {
	return score <= p.MaxAllowed(elapsed)
}

// Multiplier returns the configured score multiplier.
func (p *Policy) Multiplier() int64 {
	return p.multiplier
}
