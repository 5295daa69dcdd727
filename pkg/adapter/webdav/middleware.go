package webdav

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mvandenburgh/dandidav/internal/logger"
)

const requestIDHeader = "X-Request-Id"

type logKey struct{}

// requestLog returns the request-scoped logger installed by
// requestMiddleware, or a bare one for requests that bypassed it.
func requestLog(r *http.Request) logger.Entry {
	if e, ok := r.Context().Value(logKey{}).(logger.Entry); ok {
		return e
	}
	return logger.With()
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// requestMiddleware assigns every request an id, echoed in X-Request-Id
// and attached to its log lines, and records per-request metrics.
func (a *WebDAVAdapter) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		log := logger.With("request_id", id)
		r = r.WithContext(context.WithValue(r.Context(), logKey{}, log))

		method := methodLabel(r.Method)
		a.metrics.RequestStarted(method)
		defer a.metrics.RequestFinished(method)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		a.metrics.ObserveRequest(method, status, elapsed)

		log.Debug("%s %s depth=%q -> %d (%d bytes, %v)",
			r.Method, r.URL.Path, r.Header.Get("Depth"), status, rec.bytes, elapsed)
	})
}

// methodLabel bounds the metric label values to the served methods.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, methodPropfind:
		return method
	}
	return "OTHER"
}

// recoveryLogger routes handler panics caught by gorilla/handlers into the
// process logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	logger.Error("Recovered from panic: %s", fmt.Sprint(v...))
}
