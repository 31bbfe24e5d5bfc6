package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stackerlabs/stacker/internal/domain/dedupe"
	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

const defaultMinDuration = 3 * time.Second

// Manager issues signed play sessions and validates submissions against them.
type Manager struct {
	codec       *Codec
	minDuration time.Duration
	nowFn       func() time.Time
	consumed    dedupe.Deduper
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithMinDuration sets the minimum elapsed time before a submission
// referencing a session is accepted.
func WithMinDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.minDuration = d
		}
	}
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.nowFn = now
		}
	}
}

// WithSingleUse enforces at-most-once consumption of each session via the
// provided seen set. Without it, replay exposure is bounded only by the
// session/player binding check.
func WithSingleUse(seen dedupe.Deduper) Option {
	return func(m *Manager) {
		m.consumed = seen
	}
}

// NewManager creates a session manager signing with the given secret.
func NewManager(secret []byte, opts ...Option) *Manager {
	m := &Manager{
		codec:       NewCodec(secret),
		minDuration: defaultMinDuration,
		nowFn:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSession mints a fresh signed session for the player. The only side
// effect is token issuance; no session record is stored server-side.
func (m *Manager) StartSession(player string) (Session, string, error) {
	payload := Session{
		SessionID:     uuid.NewString(),
		Player:        types.NormalizeWallet(player),
		StartUnixMs:   m.nowFn().UnixMilli(),
		MinDurationMs: m.minDuration.Milliseconds(),
	}
	token, err := m.codec.Sign(payload)
	if err != nil {
		return Session{}, "", err
	}
	metrics.RecordSessionIssued()
	return payload, token, nil
}

// ValidateSubmission verifies the token, binds it to the claimed session and
// player, applies the timing gate and, when single-use is enabled, consumes
// the session. The returned Session is trusted from here on.
func (m *Manager) ValidateSubmission(ctx context.Context, token, claimedSessionID, claimedPlayer string) (Session, error) {
	payload, ok := m.codec.Verify(token)
	if !ok {
		return Session{}, ErrInvalidSession
	}
	if payload.SessionID != claimedSessionID {
		return Session{}, ErrInvalidSession
	}
	if payload.Player != types.NormalizeWallet(claimedPlayer) {
		return Session{}, ErrInvalidSession
	}
	if m.Elapsed(payload) < time.Duration(payload.MinDurationMs)*time.Millisecond {
		return Session{}, ErrSessionTooShort
	}
	if m.consumed != nil {
		if m.consumed.SeenAndRecord(ctx, payload.SessionID) {
			metrics.RecordSessionReplay()
			return Session{}, ErrSessionReplayed
		}
	}
	return payload, nil
}

// Release un-consumes a session so the client may retry it. Called when the
// chain write failed after validation succeeded.
func (m *Manager) Release(ctx context.Context, sessionID string) {
	if m.consumed != nil {
		m.consumed.Unrecord(ctx, sessionID)
	}
}

// Elapsed returns how long ago the session started.
func (m *Manager) Elapsed(payload Session) time.Duration {
	return m.nowFn().Sub(time.UnixMilli(payload.StartUnixMs))
}
