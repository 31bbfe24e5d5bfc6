// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/stackerlabs/stacker/internal/domain/types"
)

// HistoryDependencies defines the interface for run history operations.
type HistoryDependencies interface {
	History(ctx context.Context, wallet string, limit int) ([]types.HistoryEntry, error)
}

// HistoryHandler handles run history requests.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// historyResponse wraps a wallet's recent runs, newest first.
type historyResponse struct {
	Wallet string               `json:"wallet"`
	Runs   []types.HistoryEntry `json:"runs"`
}

// HandleGetHistory handles GET /api/history?wallet=0x...&limit=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	wallet := types.NormalizeWallet(r.URL.Query().Get("wallet"))
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	runs, err := h.deps.History(r.Context(), wallet, limit)
	if err != nil {
		if errors.Is(err, types.ErrBadWallet) {
			writeError(w, http.StatusBadRequest, "bad_wallet", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if runs == nil {
		runs = []types.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Wallet: wallet, Runs: runs})
}
