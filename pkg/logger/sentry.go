package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// withSentry tees h into a Sentry handler. If the SDK fails to initialize,
// h is returned unchanged and the failure is logged through it.
func withSentry(h slog.Handler, cfg Config) slog.Handler {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(h).Error("failed to initialize sentry", slog.String("error", err.Error()))
		return h
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.SentryLevel == "error" {
		logLevel = []slog.Level{slog.LevelError}
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())

	return newTeeHandler(h, sentryHandler)
}

// Flush waits up to timeout for buffered Sentry events to be sent.
// It is a no-op when Sentry was never initialized.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
