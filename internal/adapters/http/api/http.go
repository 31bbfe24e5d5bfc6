// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/stackerlabs/stacker/internal/app"
	"github.com/stackerlabs/stacker/internal/domain/types"
	"github.com/stackerlabs/stacker/internal/session"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// StartSession mints a signed play session for the wallet.
	StartSession(ctx context.Context, wallet string) (session.Session, string, error)

	// SubmitRun validates, confirms on chain and records one run.
	SubmitRun(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)

	// Read operations expose leaderboard data.
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)
	History(ctx context.Context, wallet string, limit int) ([]types.HistoryEntry, error)

	// ChainInfo reports the operator wallet and chain id.
	ChainInfo() (string, int64)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionHandler     *SessionHandler
	submitHandler      *SubmitHandler
	leaderboardHandler *LeaderboardHandler
	historyHandler     *HistoryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionHandler:     NewSessionHandler(deps),
		submitHandler:      NewSubmitHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		historyHandler:     NewHistoryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/start-session", MetricsMiddleware(s.sessionHandler.HandleStartSession, "start_session"))
	mux.HandleFunc("/api/submit", MetricsMiddleware(s.submitHandler.HandleSubmit, "submit"))
	mux.HandleFunc("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
