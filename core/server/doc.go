// Package server holds the HTTP server configuration.
//
// While the serve command handles the server startup, this package defines
// the listen port, request timeouts and the API key protecting the sync
// trigger endpoints.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings
// and by the serve command to configure Fiber.
package server
