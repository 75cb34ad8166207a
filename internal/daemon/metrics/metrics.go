// Package metrics registers the daemon's prometheus collectors, mirroring
// the counter/gauge shape of the teacher's internal/metrics collector.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the daemon's process-wide prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	IPCRequests *prometheus.CounterVec
	Reconnects  prometheus.Counter
	Connected   prometheus.Gauge
}

// New builds a Collector with its own registry (not the global default
// one, so tests can construct multiple daemons in one process).
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hl_cache_hits_total",
			Help: "Cache reads that found a present slot, by slot name.",
		}, []string{"slot"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hl_cache_misses_total",
			Help: "Cache reads against an absent slot, by slot name.",
		}, []string{"slot"}),
		IPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hl_ipc_requests_total",
			Help: "IPC requests handled, by method and outcome.",
		}, []string{"method", "outcome"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hl_transport_reconnects_total",
			Help: "Observed transitions of the push transport to OPEN, including the first connect.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hl_transport_connected",
			Help: "1 if the push transport is currently OPEN, else 0.",
		}),
	}
	reg.MustRegister(c.CacheHits, c.CacheMisses, c.IPCRequests, c.Reconnects, c.Connected)
	return c
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordRequest satisfies ipc.Metrics.
func (c *Collector) RecordRequest(method, outcome string) {
	c.IPCRequests.WithLabelValues(method, outcome).Inc()
}

// RecordCacheRead satisfies ipc.Metrics.
func (c *Collector) RecordCacheRead(slot string, hit bool) {
	if hit {
		c.CacheHits.WithLabelValues(slot).Inc()
		return
	}
	c.CacheMisses.WithLabelValues(slot).Inc()
}

// SetConnected records the push transport's current OPEN/closed state.
func (c *Collector) SetConnected(connected bool) {
	if connected {
		c.Connected.Set(1)
		return
	}
	c.Connected.Set(0)
}

// RecordReconnect increments the reconnect counter.
func (c *Collector) RecordReconnect() {
	c.Reconnects.Inc()
}
