package exchange

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Prometheus instrumentation for outbound exchange
// calls, exposed at /metrics on the inspection HTTP surface alongside
// /health when ENABLE_API is set.
type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// Registry is a package-level registry (rather than the global
// default) so tests can build multiple RestClients without colliding
// on metric registration.
var Registry = prometheus.NewRegistry()

func newMetrics() *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_requests_total",
			Help: "Total exchange REST requests by method, path and outcome.",
		}, []string{"method", "path", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exchange_request_duration_seconds",
			Help:    "Exchange REST request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	_ = Registry.Register(m.requests)
	_ = Registry.Register(m.latency)
	return m
}

func (m *metrics) observeRequest(method, path string, d time.Duration, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, path, outcome).Inc()
	m.latency.WithLabelValues(method, path).Observe(d.Seconds())
}
