// Package logger builds the service's slog logger.
//
// Records are written as JSON (or text) to stdout. When a Sentry DSN is
// configured, warnings are also forwarded to Sentry as logs and errors become
// Sentry issues. An empty DSN keeps logging stdout-only, so the same setup
// works on a developer machine.
//
// Request-scoped values reach every record through context extractors:
//
//	log := logger.New(cfg, logger.ResourceIDExtractor(), httpapi.RequestIDExtractor())
//	ctx = logger.WithResourceID(ctx, "c0a8...")
//	log.InfoContext(ctx, "uploaded") // {"msg":"uploaded","resource_id":"c0a8..."}
package logger
