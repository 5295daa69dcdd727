package api

import "time"

// APIMetrics provides observability for metadata API requests.
//
// This is optional - if not provided, metrics collection is skipped.
type APIMetrics interface {
	// ObserveRequest records one HTTP request to an endpoint with the
	// response status (0 when no response was received), duration and
	// outcome
	ObserveRequest(endpoint string, status int, duration time.Duration, err error)

	// RecordPage records one listing page consumed for an endpoint
	RecordPage(endpoint string)
}

// noopMetrics is a default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObserveRequest(endpoint string, status int, duration time.Duration, err error) {}
func (noopMetrics) RecordPage(endpoint string)                                                    {}
