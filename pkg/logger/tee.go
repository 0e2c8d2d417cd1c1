package logger

import (
	"context"
	"log/slog"
)

// teeHandler writes every record to primary and mirrors it to secondary.
// Only primary's errors are reported; the mirror is best effort.
type teeHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func newTeeHandler(primary, secondary slog.Handler) slog.Handler {
	return &teeHandler{primary: primary, secondary: secondary}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	if h.secondary.Enabled(ctx, rec.Level) {
		_ = h.secondary.Handle(ctx, rec.Clone())
	}
	if !h.primary.Enabled(ctx, rec.Level) {
		return nil
	}
	return h.primary.Handle(ctx, rec)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newTeeHandler(h.primary.WithAttrs(attrs), h.secondary.WithAttrs(attrs))
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return newTeeHandler(h.primary.WithGroup(name), h.secondary.WithGroup(name))
}
