// Package session issues and validates signed play sessions.
//
// A session token is the only session state the server keeps: the signed
// payload travels to the client as an opaque bearer credential and comes
// back with the score submission. Nothing is persisted between the two.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
)

// Session is the payload carried inside a signed token.
type Session struct {
	SessionID     string `json:"sessionId"`
	Player        string `json:"player"`
	StartUnixMs   int64  `json:"startTs"`
	MinDurationMs int64  `json:"minMs"`
}

// envelope bundles the serialized payload with its authentication code.
// The payload is integrity-protected, not encrypted: anyone holding the
// token can read the session metadata.
type envelope struct {
	Data string `json:"data"`
	Sig  string `json:"sig"`
}

// Codec signs and verifies session tokens with a keyed hash.
type Codec struct {
	secret []byte
}

// NewCodec creates a token codec over the server-held secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: append([]byte(nil), secret...)}
}

// Sign serializes the payload, computes an HMAC-SHA256 code over the
// serialized bytes and returns a base64url bundle of both.
func (c *Codec) Sign(payload Session) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	env := envelope{
		Data: string(data),
		Sig:  hex.EncodeToString(c.mac(data)),
	}
	bundle, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bundle), nil
}

// Verify decodes the bundle, recomputes the code over the extracted payload
// bytes and returns the payload only on an exact match. Every failure mode
// collapses to (zero, false); callers learn nothing about why.
func (c *Codec) Verify(token string) (Session, bool) {
	bundle, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Session{}, false
	}
	var env envelope
	if err := json.Unmarshal(bundle, &env); err != nil {
		return Session{}, false
	}
	sig, err := hex.DecodeString(env.Sig)
	if err != nil {
		return Session{}, false
	}
	if !hmac.Equal(sig, c.mac([]byte(env.Data))) {
		return Session{}, false
	}
	var payload Session
	if err := json.Unmarshal([]byte(env.Data), &payload); err != nil {
		return Session{}, false
	}
	return payload, true
}

func (c *Codec) mac(data []byte) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write(data)
	return h.Sum(nil)
}
