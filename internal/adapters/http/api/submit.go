// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/stackerlabs/stacker/internal/app"
	"github.com/stackerlabs/stacker/internal/session"
)

// SubmitDependencies defines the interface for run submission.
type SubmitDependencies interface {
	SubmitRun(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)
}

// SubmitHandler handles run submission requests.
type SubmitHandler struct {
	deps SubmitDependencies
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies) *SubmitHandler {
	return &SubmitHandler{deps: deps}
}

// submitRequest is the body of POST /api/submit.
type submitRequest struct {
	SessionID  string `json:"sessionId"`
	Token      string `json:"token"`
	Wallet     string `json:"wallet"`
	ScoreDelta int64  `json:"scoreDelta"`
	TxDelta    int64  `json:"txDelta,omitempty"`
	Username   string `json:"username,omitempty"`
}

func (s submitRequest) validate() error {
	switch {
	case strings.TrimSpace(s.SessionID) == "":
		return errors.New("missing sessionId")
	case strings.TrimSpace(s.Token) == "":
		return errors.New("missing token")
	case strings.TrimSpace(s.Wallet) == "":
		return errors.New("missing wallet")
	}
	return nil
}

// submitResponse reports the accepted run. LedgerPersisted is false on the
// rare half-failure where the chain confirmed but the ledger append did not.
type submitResponse struct {
	OK              bool   `json:"ok"`
	TxHash          string `json:"txHash"`
	LedgerPersisted bool   `json:"ledgerPersisted"`
}

// HandleSubmit handles POST /api/submit requests.
func (h *SubmitHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.SubmitRun(r.Context(), service.SubmitRequest{
		SessionID:  req.SessionID,
		Token:      req.Token,
		Wallet:     req.Wallet,
		ScoreDelta: req.ScoreDelta,
		TxDelta:    req.TxDelta,
		Username:   req.Username,
	})
	if err != nil {
		status, code := submitErrorStatus(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		OK:              true,
		TxHash:          result.TxHash,
		LedgerPersisted: result.LedgerPersisted,
	})
}

// submitErrorStatus maps submission failures onto HTTP statuses. Client
// faults are 4xx, an unreachable or unconfirmed chain is 502, anything else
// is a plain 500.
func submitErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidSession):
		return http.StatusUnauthorized, "invalid_session"
	case errors.Is(err, session.ErrSessionTooShort):
		return http.StatusBadRequest, "session_too_short"
	case errors.Is(err, session.ErrSessionReplayed):
		return http.StatusBadRequest, "session_replayed"
	case errors.Is(err, service.ErrSuspiciousScore):
		return http.StatusBadRequest, "suspicious_score"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrChainUnavailable):
		return http.StatusBadGateway, "chain_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
