package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/fwt-go/internal/server/httpserver/handler"
	"github.com/yndnr/fwt-go/internal/telemetry/logger"
	"github.com/yndnr/fwt-go/internal/telemetry/metric"
	"github.com/yndnr/fwt-go/pkg/token"
)

// Context keys for request-scoped values.
type contextKey string

const (
	// ContextKeyStartTime is the context key for request start time.
	ContextKeyStartTime contextKey = "start_time"

	contextKeyAudit    contextKey = "audit"
	contextKeyClientIP contextKey = "client_ip"
)

// auditInfo collects values for the audit record from inner middleware.
// Inner middleware must not replace the request, or Audit would lose the
// route pattern set by the ServeMux.
type auditInfo struct {
	apiKeyFingerprint string
}

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID adds a unique request ID to each request. A caller-supplied
// X-Request-ID is kept.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 128 {
				requestID = "req-" + token.NewID()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth requires an API key in "Authorization: Bearer <secret>" or
// X-API-Key whose SHA-256 hash is in hashes. It is a no-op when hashes is
// empty.
func Auth(hashes []string, skipPaths []string) Middleware {
	return func(next http.Handler) http.Handler {
		if len(hashes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range skipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			secret := extractAPIKey(r)
			if secret == "" {
				writeMiddlewareError(w, r, http.StatusUnauthorized, "FWT-AUTH-4010", "authentication required")
				return
			}
			if !token.VerifyAny(secret, hashes) {
				writeMiddlewareError(w, r, http.StatusUnauthorized, "FWT-AUTH-4011", "invalid API key")
				return
			}

			if info, ok := r.Context().Value(contextKeyAudit).(*auditInfo); ok {
				info.apiKeyFingerprint = token.Hash(secret)[:16]
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey returns the API key secret from request headers.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if secret, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(secret)
		}
		return ""
	}
	return r.Header.Get("X-API-Key")
}

// limiterIdle is how long an unused per-IP limiter is kept.
const limiterIdle = 10 * time.Minute

// RateLimit applies per-IP token bucket rate limiting. A non-positive
// rps disables it.
func RateLimit(rps float64, burst int) Middleware {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		l := newIPLimiter(rate.Limit(rps), burst)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(getClientIP(r), time.Now()) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter(rps)))
				writeMiddlewareError(w, r, http.StatusTooManyRequests, "FWT-SYS-4290", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(rps float64) int {
	if rps >= 1 {
		return 1
	}
	return int(1/rps + 0.5)
}

type ipLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		limit:     limit,
		burst:     burst,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	if now.Sub(l.lastSweep) > limiterIdle {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdle {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Audit logs every request and records it in metrics, which may be nil.
func Audit(log *slog.Logger, metrics *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			info := &auditInfo{}
			r = r.WithContext(context.WithValue(r.Context(), contextKeyAudit, info))
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			if startTime, ok := r.Context().Value(ContextKeyStartTime).(time.Time); ok {
				duration = time.Since(startTime)
			}

			// Pattern is filled in by the ServeMux on this same request.
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			if metrics != nil {
				metrics.ObserveRequest(r.Method, route, wrapped.statusCode, duration)
			}

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"client_ip", getClientIP(r),
			}
			if info.apiKeyFingerprint != "" {
				attrs = append(attrs, "api_key_fingerprint", info.apiKeyFingerprint)
			}
			if code := wrapped.Header().Get("X-Error-Code"); code != "" {
				attrs = append(attrs, "error_code", code)
			}

			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Info("request completed", attrs...)
			}
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeMiddlewareError(w, r, http.StatusInternalServerError, "FWT-SYS-5000", "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func writeMiddlewareError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	handler.WriteError(w, r, status, code, message, "")
}

// TrustedProxies holds the networks whose forwarding headers are honoured.
// A nil *TrustedProxies trusts nobody.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies parses IP addresses and CIDR ranges.
func ParseTrustedProxies(list []string) (*TrustedProxies, error) {
	if len(list) == 0 {
		return nil, nil
	}
	p := &TrustedProxies{}
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q is not an IP or CIDR", entry)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			p.nets = append(p.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		p.nets = append(p.nets, n)
	}
	return p, nil
}

// Contains reports whether ip belongs to a trusted network.
func (p *TrustedProxies) Contains(ip string) bool {
	if p == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range p.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address of r. Forwarding headers are read
// only when the peer is a trusted proxy. X-Forwarded-For is walked from the
// right and the first untrusted hop is the client.
func (p *TrustedProxies) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !p.Contains(peer) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			client = hop
			if !p.Contains(hop) {
				break
			}
		}
		return client
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

// ClientIP resolves the client address once for the inner middleware.
func ClientIP(trusted *TrustedProxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), contextKeyClientIP, trusted.ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// getClientIP returns the address resolved by ClientIP, or the peer
// address when ClientIP is not in the chain.
func getClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(contextKeyClientIP).(string); ok {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	// SplitHostPort handles IPv6 addresses like [::1]:8080.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
