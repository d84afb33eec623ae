package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/internal/telemetry/logger"
	"github.com/yndnr/fwt-go/pkg/fwt"
)

// maxBodyBytes bounds request bodies. A payload is at most 64 KiB before
// JSON and base64 overhead.
const maxBodyBytes = 1 << 20

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	tokenSvc *service.TokenService
	metrics  http.Handler
	logger   *slog.Logger
	mux      *http.ServeMux
	started  time.Time
}

// New creates a new Handler. metrics may be nil to omit GET /metrics.
func New(tokenSvc *service.TokenService, metrics http.Handler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		tokenSvc: tokenSvc,
		metrics:  metrics,
		logger:   logger,
		mux:      http.NewServeMux(),
		started:  time.Now(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics)
	}

	h.mux.HandleFunc("GET /v1/authorities", h.handleListAuthorities)
	h.mux.HandleFunc("POST /v1/authorities/{name}/tokens", h.handleIssueToken)
	h.mux.HandleFunc("POST /v1/authorities/{name}/tokens/validate", h.handleValidateToken)
	h.mux.HandleFunc("POST /v1/revocations", h.handleRevoke)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(logger.RequestIDFromContext(r.Context()), data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	WriteError(w, r, status, code, message, details)
}

// WriteError writes an error envelope. Middleware uses it as well.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	response := NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// decodeBody decodes a JSON request body into v.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, "FWT-SYS-4130", "request body too large", "")
			return false
		}
		h.writeError(w, r, http.StatusBadRequest, "FWT-SYS-4000", "invalid request body", err.Error())
		return false
	}
	return true
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *fwt.Error
	if errors.As(err, &fe) {
		status := errorCodeToHTTPStatus(fe.Code)
		if status >= http.StatusInternalServerError {
			logger.L(r.Context()).Error("request failed", "error", err)
			h.writeError(w, r, status, fe.Code, fe.Message, "")
			return
		}
		h.writeError(w, r, status, fe.Code, fe.Message, fe.Details)
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "FWT-SYS-5000", "internal server error", "")
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"),
		strings.HasSuffix(code, "-4012"), strings.HasSuffix(code, "-4013"),
		strings.HasSuffix(code, "-4014"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-5010"):
		return http.StatusNotImplemented
	case strings.Contains(code, "-4"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
