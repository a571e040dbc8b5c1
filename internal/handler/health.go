package handler

import (
	"net/http"

	"corebank/internal/transfer"
)

// HealthHandler reports liveness and store readiness.
type HealthHandler struct {
	health transfer.HealthChecker
}

func NewHealthHandler(health transfer.HealthChecker) *HealthHandler {
	return &HealthHandler{health: health}
}

// Live always reports ok while the process is up.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the account store is reachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ready(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
