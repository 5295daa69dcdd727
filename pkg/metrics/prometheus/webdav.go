// Package prometheus provides the Prometheus implementations of the metrics
// interfaces used across dandidav.
package prometheus

import (
	"strconv"
	"time"

	"github.com/mvandenburgh/dandidav/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// davMetrics is the Prometheus implementation of metrics.DAVMetrics.
type davMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	integrityErrors  prometheus.Counter
}

// NewDAVMetrics creates a Prometheus-backed DAVMetrics.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewDAVMetrics() metrics.DAVMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopDAVMetrics()
	}

	reg := metrics.GetRegistry()

	return &davMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dandidav_webdav_requests_total",
				Help: "Total number of WebDAV requests by method and status code",
			},
			[]string{"method", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dandidav_webdav_request_duration_seconds",
				Help: "Duration of WebDAV requests in seconds",
				Buckets: []float64{
					0.005, // 5ms
					0.025, // 25ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
					10.0,  // 10s
					30.0,  // 30s
				},
			},
			[]string{"method"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dandidav_webdav_requests_in_flight",
				Help: "Current number of WebDAV requests being processed",
			},
			[]string{"method"},
		),
		integrityErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dandidav_asset_integrity_errors_total",
				Help: "Asset records rejected for naming neither or both of blob and zarr",
			},
		),
	}
}

func (m *davMetrics) ObserveRequest(method string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *davMetrics) RequestStarted(method string) {
	m.requestsInFlight.WithLabelValues(method).Inc()
}

func (m *davMetrics) RequestFinished(method string) {
	m.requestsInFlight.WithLabelValues(method).Dec()
}

func (m *davMetrics) RecordIntegrityError() {
	m.integrityErrors.Inc()
}
