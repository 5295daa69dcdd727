package metrics

import "time"

// DAVMetrics provides observability for the WebDAV adapter.
//
// This interface is optional - the adapter falls back to NewNoopDAVMetrics
// when none is given.
type DAVMetrics interface {
	// ObserveRequest records a completed request.
	//
	// Parameters:
	//   - method: HTTP method (PROPFIND, GET, ...)
	//   - status: HTTP status code written
	//   - duration: Time from receipt to the last byte written
	ObserveRequest(method string, status int, duration time.Duration)

	// RequestStarted and RequestFinished bracket a request for the
	// in-flight gauge.
	RequestStarted(method string)
	RequestFinished(method string)

	// RecordIntegrityError counts asset records rejected because they name
	// neither or both backing stores.
	RecordIntegrityError()
}

// NewNoopDAVMetrics returns a DAVMetrics that records nothing.
func NewNoopDAVMetrics() DAVMetrics {
	return noopDAVMetrics{}
}

type noopDAVMetrics struct{}

func (noopDAVMetrics) ObserveRequest(method string, status int, duration time.Duration) {}
func (noopDAVMetrics) RequestStarted(method string)                                    {}
func (noopDAVMetrics) RequestFinished(method string)                                   {}
func (noopDAVMetrics) RecordIntegrityError()                                           {}
