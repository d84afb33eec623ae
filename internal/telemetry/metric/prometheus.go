package metric

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fwt"

// Validation results used as the "result" label.
const (
	ResultValid    = "valid"
	ResultExpired  = "expired"
	ResultNotYet   = "not_yet_valid"
	ResultInvalid  = "invalid"
	ResultType     = "type_mismatch"
	ResultRevoked  = "revoked"
	ResultMalform  = "malformed"
	ResultInternal = "error"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Token metrics
	TokensIssued    *prometheus.CounterVec
	TokensValidated *prometheus.CounterVec
	Revocations     prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the fwt instruments plus the Go and
// process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued, by authority.",
		}, []string{"authority"}),
		TokensValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_validated_total",
			Help:      "Token validations, by authority and result.",
		}, []string{"authority", "result"}),
		Revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_total",
			Help:      "Token IDs revoked.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.TokensIssued,
		r.TokensValidated,
		r.Revocations,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// MustRegister adds further collectors to the registry.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Gatherer returns the underlying gatherer, for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveIssue counts an issued token.
func (r *Registry) ObserveIssue(authority string) {
	r.TokensIssued.WithLabelValues(authority).Inc()
}

// ObserveValidate counts a validation outcome.
func (r *Registry) ObserveValidate(authority, result string) {
	r.TokensValidated.WithLabelValues(authority, result).Inc()
}

// ObserveRevoke counts a revocation.
func (r *Registry) ObserveRevoke() {
	r.Revocations.Inc()
}

// ObserveRequest records one finished HTTP request.
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}
