// Package webdav serves the archive over read-only WebDAV (class 1 and 3
// PROPFIND plus GET/HEAD/OPTIONS).
package webdav

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mvandenburgh/dandidav/internal/logger"
	"github.com/mvandenburgh/dandidav/internal/ratelimiter"
	"github.com/mvandenburgh/dandidav/pkg/dav"
	"github.com/mvandenburgh/dandidav/pkg/metrics"
)

// WebDAVAdapter implements adapter.Adapter over HTTP.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. The HTTP server stops accepting connections and closes idle ones
//  3. In-flight requests get until the shutdown deadline to finish
//  4. Serve returns once the server has fully shut down
//
// Thread safety:
// All methods are safe for concurrent use.
type WebDAVAdapter struct {
	config  Config
	service *dav.Service
	metrics metrics.DAVMetrics
	limiter *ratelimiter.RateLimiter
	server  *http.Server

	mu   sync.Mutex
	port int

	shutdownOnce sync.Once
	stopped      chan struct{}
	stopErr      error
}

// New creates a WebDAVAdapter. Call SetService before Serve or Handler.
//
// Parameters:
//   - config: listener, timeout and middleware settings
//   - davMetrics: optional metrics collector (nil for no metrics)
//
// Panics if config validation fails.
func New(config Config, davMetrics metrics.DAVMetrics) *WebDAVAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid WebDAV config: %v", err))
	}
	if davMetrics == nil {
		davMetrics = metrics.NewNoopDAVMetrics()
	}

	a := &WebDAVAdapter{
		config:  config,
		metrics: davMetrics,
		limiter: ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
		port:    config.Port,
		stopped: make(chan struct{}),
	}
	a.server = &http.Server{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return a
}

// SetService injects the lookup service.
func (a *WebDAVAdapter) SetService(svc *dav.Service) {
	a.service = svc
	a.server.Handler = a.Handler()
	logger.Debug("WebDAV service configured")
}

// Serve listens on the configured port and serves requests until ctx is
// cancelled or Stop is called.
func (a *WebDAVAdapter) Serve(ctx context.Context) error {
	if a.service == nil {
		return errors.New("WebDAV adapter has no service; call SetService() before Serve()")
	}

	port := max(a.config.Port, 0)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to create WebDAV listener on port %d: %w", port, err)
	}
	a.mu.Lock()
	a.port = ln.Addr().(*net.TCPAddr).Port
	a.mu.Unlock()

	logger.Info("WebDAV server listening on port %d", a.Port())
	logger.Debug("WebDAV config: read_timeout=%v write_timeout=%v idle_timeout=%v rate_limit=%d/s",
		a.config.ReadTimeout, a.config.WriteTimeout, a.config.IdleTimeout, a.config.RateLimit.RequestsPerSecond)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("WebDAV shutdown signal received: %v", ctx.Err())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
			defer cancel()
			_ = a.Stop(shutdownCtx)
		case <-a.stopped:
		}
	}()

	if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("WebDAV server: %w", err)
	}

	<-a.stopped
	return a.stopErr
}

// Stop gracefully shuts down the server. It is idempotent; later calls
// return the result of the first.
func (a *WebDAVAdapter) Stop(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		logger.Debug("WebDAV shutdown initiated")
		if err := a.server.Shutdown(ctx); err != nil {
			a.stopErr = fmt.Errorf("WebDAV shutdown: %w", err)
			logger.Warn("WebDAV shutdown did not complete: %v", err)
			_ = a.server.Close()
		} else {
			logger.Info("WebDAV server stopped gracefully")
		}
		close(a.stopped)
	})
	<-a.stopped
	return a.stopErr
}

// Protocol implements adapter.Adapter.
func (a *WebDAVAdapter) Protocol() string {
	return "WebDAV"
}

// Port implements adapter.Adapter.
func (a *WebDAVAdapter) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}
