// Package observability provides Prometheus instrumentation for gateway
// calls.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHooks implements the gateway's Hooks interface, recording
// per-provider request counts, outcomes, and latencies.
type PrometheusHooks struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusHooks creates hooks backed by a private Prometheus registry.
func NewPrometheusHooks() *PrometheusHooks {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelgate",
		Name:      "requests_total",
		Help:      "Gateway calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "modelgate",
		Name:      "request_duration_seconds",
		Help:      "Provider exchange latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	reg.MustRegister(requests, duration)

	return &PrometheusHooks{
		registry: reg,
		requests: requests,
		duration: duration,
	}
}

// Observe records one completed gateway call. outcome is "success" or the
// gateway error code.
func (h *PrometheusHooks) Observe(provider, outcome string, elapsed time.Duration) {
	h.requests.WithLabelValues(provider, outcome).Inc()
	h.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (h *PrometheusHooks) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}
