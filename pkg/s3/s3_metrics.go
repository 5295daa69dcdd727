package s3

import "time"

// S3Metrics provides observability for S3 listing operations.
//
// Implementations can use this interface to collect metrics about listing
// latency, page counts and errors. This is optional - if not provided, metrics
// collection is skipped.
type S3Metrics interface {
	// ObserveOperation records a listing operation ("list" or "lookup") with
	// its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordPage records one ListObjectsV2 page fetched for an operation
	RecordPage(operation string)
}

// noopMetrics is a default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordPage(operation string)                                          {}
