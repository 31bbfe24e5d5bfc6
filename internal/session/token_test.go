package session

import (
	"testing"
)

func newTestCodec() *Codec {
	return NewCodec([]byte("test-secret"))
}

func testPayload() Session {
	return Session{
		SessionID:     "2f0c8f6e-5b1c-4d3a-9e0f-7a6b5c4d3e2f",
		Player:        "0xabcdef0123456789abcdef0123456789abcdef01",
		StartUnixMs:   1700000000000,
		MinDurationMs: 3000,
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec()
	payload := testPayload()

	token, err := codec.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, ok := codec.Verify(token)
	if !ok {
		t.Fatalf("expected valid token to verify")
	}
	if got != payload {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, payload)
	}
}

func TestVerifyRejectsTamperedTokens(t *testing.T) {
	codec := newTestCodec()
	token, err := codec.Sign(testPayload())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Flip every byte position in turn; none may verify.
	raw := []byte(token)
	for i := range raw {
		mutated := append([]byte(nil), raw...)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		if string(mutated) == token {
			continue
		}
		if _, ok := codec.Verify(string(mutated)); ok {
			t.Fatalf("tampered token at byte %d verified", i)
		}
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec := newTestCodec()
	for _, token := range []string{
		"",
		"not-base64!!!",
		"aGVsbG8",          // base64 of non-JSON
		"eyJkYXRhIjoiIn0",  // envelope without sig
	} {
		if _, ok := codec.Verify(token); ok {
			t.Fatalf("expected %q to be rejected", token)
		}
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	token, err := NewCodec([]byte("key-one")).Sign(testPayload())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, ok := NewCodec([]byte("key-two")).Verify(token); ok {
		t.Fatalf("token signed under a different key verified")
	}
}
