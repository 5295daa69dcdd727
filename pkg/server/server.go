// Package server runs the protocol adapters of the gateway and coordinates
// their shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mvandenburgh/dandidav/internal/logger"
	"github.com/mvandenburgh/dandidav/pkg/adapter"
	"github.com/mvandenburgh/dandidav/pkg/dav"
)

// DefaultShutdownTimeout bounds adapter shutdown when Config leaves it zero.
const DefaultShutdownTimeout = 30 * time.Second

// Config configures a Server.
type Config struct {
	// ShutdownTimeout is how long adapters are given to drain on shutdown.
	ShutdownTimeout time.Duration
}

// Server manages the lifecycle of the protocol adapters. Every adapter
// serves the same lookup service, so all of them expose one consistent view
// of the archive.
//
// Lifecycle:
//  1. Creation: New() with the shared service
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or an adapter failure stops them all
//
// Example usage:
//
//	srv := server.New(service, server.Config{})
//	if err := srv.AddAdapter(webdav.New(cfg, nil)); err != nil {
//	    return err
//	}
//	err := srv.Serve(ctx)
type Server struct {
	service         *dav.Service
	shutdownTimeout time.Duration

	mu       sync.Mutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a Server around the shared lookup service.
//
// Panics if service is nil.
func New(service *dav.Service, cfg Config) *Server {
	if service == nil {
		panic("service cannot be nil")
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	return &Server{service: service, shutdownTimeout: timeout}
}

// AddAdapter injects the shared service into a and registers it.
//
// Returns an error if another adapter already serves the same protocol or
// port.
//
// Panics if a is nil or Serve has already been called.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol, port := a.Protocol(), a.Port()
	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetService(s.service)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts every registered adapter and blocks until ctx is cancelled
// or an adapter fails. Either way all adapters are stopped, in reverse
// registration order, before Serve returns.
//
// Returns:
//   - ctx.Err() when shutdown was triggered by the context
//   - the first adapter failure otherwise
//
// Panics if called more than once.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		panic("Serve() has already been called on this server instance")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := append([]adapter.Adapter(nil), s.adapters...)
	s.mu.Unlock()

	logger.Info("Starting dandidav with %d adapter(s)", len(adapters))

	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, a := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil || ctx.Err() != nil:
				logger.Debug("%s adapter stopped", protocol)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(a)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()
	case failed := <-errChan:
		logger.Error("Adapter %s failed: %v - shutting down", failed.protocol, failed.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", failed.protocol, failed.err)
	}

	s.stopAll(adapters)
	wg.Wait()

	logger.Info("dandidav stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAll stops adapters in reverse registration order, sharing one
// shutdown deadline.
func (s *Server) stopAll(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		if err := a.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", a.Protocol(), err)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]adapter.Adapter(nil), s.adapters...)
}
