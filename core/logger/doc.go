// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and integrates with the Fiber web framework used
// by the HTTP trigger.
//
// # Context Awareness
//
// WithRayID extracts the RayID (request ID) from a Fiber context and attaches it
// to the log entry, so every log line of one triggered synchronization pass can
// be correlated with the request that started it.
//
// # Configuration
//
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Synchronization started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
