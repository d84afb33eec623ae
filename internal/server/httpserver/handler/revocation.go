package handler

import (
	"net/http"

	"github.com/yndnr/fwt-go/internal/core/service"
)

// handleRevoke handles POST /v1/revocations.
func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Authority == "" {
		h.writeError(w, r, http.StatusBadRequest, "FWT-ARG-4000", "invalid argument", "authority is required")
		return
	}

	svcReq := &service.RevokeRequest{
		Authority: req.Authority,
		TokenID:   req.TokenID,
		Token:     req.Token,
	}
	if req.Until != nil {
		svcReq.Until = *req.Until
	}

	resp, err := h.tokenSvc.Revoke(r.Context(), svcReq)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RevokeResponse{
		TokenID: resp.TokenID,
		Until:   resp.Until.UTC(),
	})
}
