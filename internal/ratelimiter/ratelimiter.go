// Package ratelimiter throttles incoming WebDAV requests with a token
// bucket.
package ratelimiter

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter admits requests at a sustained rate with bursts up to a fixed
// bucket size. A single limiter is shared by every client of the server;
// it guards the upstream APIs, not fairness between clients.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter admitting requestsPerSecond on average and up
// to burst at once.
//
// Special cases:
//   - requestsPerSecond = 0: no limiting at all
//   - burst = 0: burst defaults to requestsPerSecond
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter admits everything.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// SetLimit changes the sustained rate. Zero removes the limit.
func (r *RateLimiter) SetLimit(requestsPerSecond uint) {
	if requestsPerSecond == 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
}

// Tokens returns the number of tokens currently in the bucket.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

// RetryAfter estimates how long a rejected client should wait before one
// token is available again, rounded up to whole seconds (minimum 1).
func (r *RateLimiter) RetryAfter() time.Duration {
	limit := float64(r.limiter.Limit())
	if r.Unlimited() || limit <= 0 {
		return 0
	}
	missing := 1 - r.limiter.Tokens()
	if missing <= 0 {
		return time.Second
	}
	secs := math.Ceil(missing / limit)
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// Middleware rejects requests over the limit with 429 Too Many Requests
// and a Retry-After header. Admitted requests are passed to next.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	if r.Unlimited() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(int(r.RetryAfter()/time.Second)))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
