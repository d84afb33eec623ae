package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Time:          time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Authorities:   h.tokenSvc.Authorities(),
	})
}

// handleListAuthorities handles GET /v1/authorities.
func (h *Handler) handleListAuthorities(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, AuthoritiesResponse{Authorities: h.tokenSvc.Authorities()})
}
