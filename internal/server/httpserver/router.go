package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/internal/server/httpserver/handler"
	"github.com/yndnr/fwt-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// TokenService handles token operations.
	TokenService *service.TokenService

	// Metrics records request metrics and serves /metrics. Optional.
	Metrics *metric.Registry

	// Logger for request logging.
	Logger *slog.Logger

	// APIKeyHashes are hex SHA-256 hashes of accepted API keys. Empty
	// disables authentication.
	APIKeyHashes []string

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int

	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Nil trusts
	// nobody, so the peer address is the client IP.
	TrustedProxies *TrustedProxies
}

// skipAuthPaths are served without an API key.
var skipAuthPaths = []string{"/health", "/metrics"}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var metricsHandler http.Handler
	if cfg.Metrics != nil {
		metricsHandler = cfg.Metrics.Handler()
	}
	h := handler.New(cfg.TokenService, metricsHandler, log)

	hashes := make([]string, len(cfg.APIKeyHashes))
	for i, hash := range cfg.APIKeyHashes {
		hashes[i] = strings.ToLower(strings.TrimSpace(hash))
	}

	// Audit wraps Recover so a panic is logged as a 500, and wraps RateLimit
	// and Auth so their rejections are counted.
	return Chain(h,
		RequestID(),
		ClientIP(cfg.TrustedProxies),
		Audit(log, cfg.Metrics),
		Recover(log),
		RateLimit(cfg.RateLimit, cfg.RateBurst),
		Auth(hashes, skipAuthPaths),
	)
}
