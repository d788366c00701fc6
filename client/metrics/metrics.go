// Package metrics provides an [http.RoundTripper] middleware recording
// Prometheus request counters, latency histograms and an in-flight gauge.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "httper"

// Metrics holds the Prometheus collectors fed by the middleware.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg uses [prometheus.DefaultRegisterer]. An empty namespace
// falls back to [DefaultNamespace].
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of outbound requests by method, host and status code",
			},
			[]string{"method", "host", "code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Time until response headers were received",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"method", "host"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_in_flight",
				Help:      "Current number of outbound requests awaiting a response",
			},
		),
	}
}

// RecordRequest records a completed round trip. A zero statusCode marks a
// transport failure.
func (m *Metrics) RecordRequest(method, host string, statusCode int, took time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}

	m.RequestsTotal.WithLabelValues(method, host, code).Inc()
	m.RequestDuration.WithLabelValues(method, host).Observe(took.Seconds())
}

// Middleware returns a decorator that records every round trip into m.
func (m *Metrics) Middleware() func(next http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		if next == nil {
			next = http.DefaultTransport
		}

		return &roundTripper{next: next, metrics: m}
	}
}

type roundTripper struct {
	next    http.RoundTripper
	metrics *Metrics
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.metrics.RequestsInFlight.Inc()
	defer rt.metrics.RequestsInFlight.Dec()

	start := time.Now()
	resp, err := rt.next.RoundTrip(req)

	status := 0
	if err == nil {
		status = resp.StatusCode
	}
	rt.metrics.RecordRequest(req.Method, req.URL.Host, status, time.Since(start))

	return resp, err
}
