// Package metric provides Prometheus metrics for the fwt services.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, instruments and HTTP handler
//   - collector.go: collectors that read live values on scrape
//
// Metrics include:
//
//   - Tokens issued and validated, by authority and result
//   - Revocations recorded and currently active
//   - HTTP request counts and latency histograms
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
