// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// ChainInfoProvider reports the operator identity used for health checks.
type ChainInfoProvider interface {
	ChainInfo() (string, int64)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	info ChainInfoProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(info ChainInfoProvider) *HealthHandler {
	return &HealthHandler{info: info}
}

// healthResponse reports liveness plus the chain identity the service
// submits with, so operators can verify configuration at a glance.
type healthResponse struct {
	OK       bool   `json:"ok"`
	Operator string `json:"operator"`
	ChainID  int64  `json:"chainId"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	operator, chainID := h.info.ChainInfo()
	writeJSON(w, http.StatusOK, healthResponse{
		OK:       true,
		Operator: operator,
		ChainID:  chainID,
	})
}
