// Package metrics wraps the Prometheus collectors for settlement activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records match, cancel and transfer activity.
type Collector struct {
	registry *prometheus.Registry

	matchTotal    *prometheus.CounterVec
	matchLatency  prometheus.Histogram
	cancelTotal   *prometheus.CounterVec
	transferTotal *prometheus.CounterVec
	rollbackTotal prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "hyperswap"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.matchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "matches_total",
			Help:      "Match calls by result (ok or error category)",
		},
		[]string{"result"},
	)

	c.matchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "match_duration_seconds",
			Help:      "Time taken to settle a match",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
	)

	c.cancelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "cancels_total",
			Help:      "Cancelled order hashes by result",
		},
		[]string{"result"},
	)

	c.transferTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "transfers_total",
			Help:      "Executed sub-transfers by kind and asset class",
		},
		[]string{"kind", "class"},
	)

	c.rollbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "rollbacks_total",
			Help:      "Matches reverted after the ledger was written",
		},
	)

	c.registry.MustRegister(
		c.matchTotal,
		c.matchLatency,
		c.cancelTotal,
		c.transferTotal,
		c.rollbackTotal,
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordMatch records one match attempt. result is "ok" or an error category.
func (c *Collector) RecordMatch(result string, duration time.Duration) {
	c.matchTotal.WithLabelValues(result).Inc()
	c.matchLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordCancel(result string, n int) {
	c.cancelTotal.WithLabelValues(result).Add(float64(n))
}

func (c *Collector) RecordTransfer(kind, class string) {
	c.transferTotal.WithLabelValues(kind, class).Inc()
}

func (c *Collector) RecordRollback() {
	c.rollbackTotal.Inc()
}
