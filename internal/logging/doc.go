// Package logging provides structured logging for adminkit.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the toolkit: overlay surface lifecycle, auth state
// transitions and HTTP traffic between the toolkit and an admin backend.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Surface mount/settle events, HTTP request/response details
//   - Info: Auth transitions, form submissions, server lifecycle
//   - Warn: Retries, rejected submissions, revoked sessions
//   - Error: Startup failures, unexpected backend responses
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Record created",
//	    zap.String("path", "/users"),
//	    zap.String("id", resp.ID),
//	)
//
// Components that log a lot take a named child logger instead:
//
//	log := logging.Named("overlay")
//	log.Debug("Surface mounted", zap.String("surface_id", id))
//
// # Configuration
//
// Logging is silent by default so that the TUI owns the terminal. Set
// ADMINKIT_LOG_LEVEL to "debug", "info", "warn" or "error" to enable output
// on stderr, and ADMINKIT_LOG_FORMAT=json for machine-readable logs:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Authorization, Cookie and Set-Cookie headers are redacted before logging.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The global logger is
// guarded by a RWMutex and the underlying zap logger handles its own
// synchronization.
package logging
