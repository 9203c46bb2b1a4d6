package inspect

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on a registry owned by the server, so several servers
// can live in one process.
type metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	operations   *prometheus.CounterVec
	payloadBytes *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "protodyn",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "protodyn",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "protodyn",
				Subsystem: "codec",
				Name:      "operations_total",
				Help:      "Decode and encode operations by message type and outcome.",
			},
			[]string{"op", "type", "result"},
		),
		payloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "protodyn",
				Subsystem: "codec",
				Name:      "payload_bytes",
				Help:      "Size of wire payloads read or written.",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
			},
			[]string{"op"},
		),
	}
	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.operations, m.payloadBytes)
	return m
}

func (m *metrics) recordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func (m *metrics) recordOperation(op, messageType string, size int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, messageType, result).Inc()
	if err == nil {
		m.payloadBytes.WithLabelValues(op).Observe(float64(size))
	}
}
