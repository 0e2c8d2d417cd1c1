package logger

import (
	"io"
	"log/slog"
	"os"
)

// New creates the service logger. An invalid level falls back to info.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return newLogger(os.Stdout, cfg, extractors...)
}

// NewWithWriter creates the service logger writing to w.
func NewWithWriter(w io.Writer, cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return newLogger(w, cfg, extractors...)
}

func newLogger(w io.Writer, cfg Config, extractors ...ContextExtractor) *slog.Logger {
	level, err := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	if cfg.SentryDSN != "" {
		h = withSentry(h, cfg)
	}

	log := slog.New(NewLogHandlerDecorator(h, extractors...))
	if err != nil {
		log.Warn("falling back to info level", slog.String("error", err.Error()))
	}
	return log
}

// NewNope creates a logger that discards all output.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
