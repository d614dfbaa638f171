package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics instruments the API request path. A nil *HTTPMetrics is a
// valid no-op receiver.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

var (
	httpOnce    sync.Once
	httpMetrics *HTTPMetrics
)

// NewHTTPMetrics creates the API request metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() *HTTPMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	httpOnce.Do(func() {
		httpMetrics = &HTTPMetrics{
			requests: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Name: "idmapping_http_requests_total",
					Help: "Total number of API requests by method, route and status code",
				},
				[]string{"method", "route", "status"},
			),
			duration: promauto.With(reg).NewHistogramVec(
				prometheus.HistogramOpts{
					Name: "idmapping_http_request_duration_seconds",
					Help: "Duration of API requests by method and route",
					Buckets: []float64{
						0.001, // cached lookups
						0.005,
						0.01,
						0.05,
						0.1,
						0.5, // remote auth round trips
						1,
						5,
					},
				},
				[]string{"method", "route"},
			),
			inFlight: promauto.With(reg).NewGauge(
				prometheus.GaugeOpts{
					Name: "idmapping_http_requests_in_flight",
					Help: "Number of API requests currently being served",
				},
			),
		}
	})

	return httpMetrics
}

// ObserveRequest records a completed request.
func (m *HTTPMetrics) ObserveRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RequestStarted marks a request as in flight; the returned function marks
// it done.
func (m *HTTPMetrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
