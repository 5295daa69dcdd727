package prometheus

import (
	"strconv"
	"time"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"github.com/mvandenburgh/dandidav/pkg/dandi/api"
	"github.com/mvandenburgh/dandidav/pkg/metrics"
	"github.com/mvandenburgh/dandidav/pkg/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// backendMetrics collects metrics for both upstream backends, labelled by
// backend ("dandi-api" or "s3").
type backendMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	pagesTotal        *prometheus.CounterVec
}

// BackendMetrics is the pair of per-backend views handed to the clients.
// Both fields are nil when metrics are disabled, which makes the clients
// fall back to their built-in no-op implementations.
type BackendMetrics struct {
	API api.APIMetrics
	S3  s3.S3Metrics
}

// NewBackendMetrics creates Prometheus-backed metrics for the metadata API
// client and the S3 client.
func NewBackendMetrics() BackendMetrics {
	if !metrics.IsEnabled() {
		return BackendMetrics{}
	}

	reg := metrics.GetRegistry()

	m := &backendMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dandidav_backend_operations_total",
				Help: "Total number of backend operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dandidav_backend_operation_duration_seconds",
				Help: "Duration of backend operations in seconds",
				Buckets: []float64{
					0.01,  // 10ms
					0.05,  // 50ms
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
			[]string{"backend", "operation"},
		),
		pagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dandidav_backend_pages_total",
				Help: "Total number of listing pages fetched by backend and operation",
			},
			[]string{"backend", "operation"},
		),
	}

	return BackendMetrics{
		API: apiMetrics{m},
		S3:  s3Metrics{m},
	}
}

func (m *backendMetrics) observe(backend dandi.Backend, op, status string, d time.Duration) {
	m.operationsTotal.WithLabelValues(string(backend), op, status).Inc()
	m.operationDuration.WithLabelValues(string(backend), op).Observe(d.Seconds())
}

// apiMetrics implements api.APIMetrics. The status label carries the HTTP
// status code, or "error" when no response was received.
type apiMetrics struct{ *backendMetrics }

func (m apiMetrics) ObserveRequest(endpoint string, status int, duration time.Duration, err error) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.observe(dandi.BackendMetadata, endpoint, label, duration)
}

func (m apiMetrics) RecordPage(endpoint string) {
	m.pagesTotal.WithLabelValues(string(dandi.BackendMetadata), endpoint).Inc()
}

// s3Metrics implements s3.S3Metrics.
type s3Metrics struct{ *backendMetrics }

func (m s3Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.observe(dandi.BackendS3, operation, status, duration)
}

func (m s3Metrics) RecordPage(operation string) {
	m.pagesTotal.WithLabelValues(string(dandi.BackendS3), operation).Inc()
}
