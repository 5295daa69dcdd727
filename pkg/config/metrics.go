package config

import (
	"github.com/mvandenburgh/dandidav/pkg/metrics"
	promMetrics "github.com/mvandenburgh/dandidav/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// DAVMetrics is the metrics collector for the WebDAV adapter (never nil, uses noop if disabled)
	DAVMetrics metrics.DAVMetrics

	// Backend holds the API and S3 client metrics (zero value if disabled)
	Backend promMetrics.BackendMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			DAVMetrics: metrics.NewNoopDAVMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:     server,
		DAVMetrics: promMetrics.NewDAVMetrics(),
		Backend:    promMetrics.NewBackendMetrics(),
	}
}
