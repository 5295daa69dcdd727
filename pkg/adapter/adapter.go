// Package adapter defines the contract between the gateway server and the
// protocol front ends that expose the archive.
package adapter

import (
	"context"

	"github.com/mvandenburgh/dandidav/pkg/dav"
)

// Adapter is a protocol front end managed by server.Server.
//
// Lifecycle:
//  1. Creation: the adapter is built from its protocol configuration
//  2. Service injection: SetService provides the shared lookup service
//  3. Startup: Serve starts the listener and blocks until shutdown
//  4. Shutdown: Stop drains in-flight requests within the context deadline
//
// Thread safety:
// SetService is called once before Serve. Stop may be called concurrently
// with Serve and more than once.
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if the listener cannot be created or serving fails
	Serve(ctx context.Context) error

	// SetService injects the lookup service shared by all adapters.
	SetService(svc *dav.Service)

	// Stop initiates graceful shutdown. In-flight requests are given until
	// ctx is done to complete.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name used in logs and metrics.
	Protocol() string

	// Port returns the TCP port the adapter listens on. Before Serve has
	// bound the listener this is the configured port.
	Port() int
}
