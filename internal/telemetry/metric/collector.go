package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SizeFunc reports a current count. It is called on every scrape and must
// be safe for concurrent use.
type SizeFunc func() int

// Collector exports gauges read from the application at scrape time.
type Collector struct {
	activeRevocations SizeFunc
	desc              *prometheus.Desc
}

// NewCollector creates a collector reporting the number of revocations
// currently held by the store.
func NewCollector(activeRevocations SizeFunc) *Collector {
	return &Collector{
		activeRevocations: activeRevocations,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "revocations_active"),
			"Revoked token IDs whose revocation window has not ended.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.activeRevocations()))
}
