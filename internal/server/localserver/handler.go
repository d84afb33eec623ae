package localserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/yndnr/fwt-go/internal/infra/buildinfo"
	"github.com/yndnr/fwt-go/internal/server/httpserver"
	"github.com/yndnr/fwt-go/internal/server/httpserver/handler"
	"github.com/yndnr/fwt-go/internal/telemetry/logger"
)

// StatusResponse is returned by GET /local/status.
type StatusResponse struct {
	Version       string   `json:"version"`
	Commit        string   `json:"commit"`
	GoVersion     string   `json:"go_version"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Goroutines    int      `json:"goroutines"`
	LogLevel      string   `json:"log_level"`
	Authorities   []string `json:"authorities"`
	Revocations   int      `json:"revocations"`
}

// LogLevelRequest is the body of PUT /local/log-level.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// LogLevelResponse is returned by PUT /local/log-level.
type LogLevelResponse struct {
	Previous string `json:"previous"`
	Level    string `json:"level"`
}

// HandlerConfig configures the local socket handler.
type HandlerConfig struct {
	// API serves every path outside /local/. It should be a router built
	// without API key hashes.
	API http.Handler

	// Authorities lists the configured authority names.
	Authorities func() []string

	// Revocations reports the revocation store size. Optional.
	Revocations func() int

	Logger *slog.Logger
}

// Handler routes local management requests.
type Handler struct {
	cfg     HandlerConfig
	mux     *http.ServeMux
	started time.Time
}

// NewHandler creates the local socket handler.
func NewHandler(cfg HandlerConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		started: time.Now(),
	}

	h.mux.HandleFunc("GET /local/status", h.handleStatus)
	h.mux.HandleFunc("PUT /local/log-level", h.handleLogLevel)
	if cfg.API != nil {
		h.mux.Handle("/", cfg.API)
	}

	return httpserver.Chain(h.mux,
		httpserver.RequestID(),
		httpserver.Recover(cfg.Logger),
	)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	status := StatusResponse{
		Version:       info.Version,
		Commit:        info.Commit,
		GoVersion:     runtime.Version(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		LogLevel:      logger.GetLevel(),
		Authorities:   []string{},
	}
	if h.cfg.Authorities != nil {
		status.Authorities = h.cfg.Authorities()
	}
	if h.cfg.Revocations != nil {
		status.Revocations = h.cfg.Revocations()
	}
	writeJSON(w, r, http.StatusOK, status)
}

func (h *Handler) handleLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		handler.WriteError(w, r, http.StatusBadRequest, "FWT-SYS-4000", "invalid request body", err.Error())
		return
	}

	previous := logger.GetLevel()
	if err := logger.SetLevel(req.Level); err != nil {
		handler.WriteError(w, r, http.StatusBadRequest, "FWT-ARG-4000", "invalid log level", err.Error())
		return
	}
	h.cfg.Logger.Info("log level changed via local socket", "previous", previous, "level", logger.GetLevel())
	writeJSON(w, r, http.StatusOK, LogLevelResponse{Previous: previous, Level: logger.GetLevel()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(handler.NewResponse(logger.RequestIDFromContext(r.Context()), data))
}
