// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/stackerlabs/stacker/internal/session"
)

// SessionDependencies defines the interface for session issuance.
type SessionDependencies interface {
	StartSession(ctx context.Context, wallet string) (session.Session, string, error)
}

// SessionHandler handles play session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// startSessionRequest is the body of POST /api/start-session.
type startSessionRequest struct {
	Wallet string `json:"wallet"`
}

func (s startSessionRequest) validate() error {
	if strings.TrimSpace(s.Wallet) == "" {
		return errors.New("missing wallet")
	}
	return nil
}

// startSessionResponse carries the minted session back to the client. The
// token is the session; the server keeps nothing.
type startSessionResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	StartTs   int64  `json:"startTs"`
	MinMs     int64  `json:"minMs"`
}

// HandleStartSession handles POST /api/start-session requests.
func (h *SessionHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	payload, token, err := h.deps.StartSession(r.Context(), req.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, startSessionResponse{
		SessionID: payload.SessionID,
		Token:     token,
		StartTs:   payload.StartUnixMs,
		MinMs:     payload.MinDurationMs,
	})
}
