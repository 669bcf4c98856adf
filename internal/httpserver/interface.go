// Package httpserver defines the contract between the CLI and the HTTP server,
// so commands can be tested against a fake server.
package httpserver

import (
	"context"

	api "github.com/wildcam-go/wildcam/internal/api/v2"
)

// Server defines the interface for the WildCam HTTP server.
type Server interface {
	// Start begins serving HTTP requests in a background goroutine and returns immediately.
	// Use Shutdown() to stop the server.
	Start()

	// StartWithGracefulShutdown serves until ctx is cancelled or a termination signal arrives.
	StartWithGracefulShutdown(ctx context.Context) error

	// Shutdown gracefully stops the server and releases resources.
	Shutdown() error

	// APIController returns the v2 API controller.
	// Returns nil if the API controller is not initialized.
	APIController() *api.Controller
}
