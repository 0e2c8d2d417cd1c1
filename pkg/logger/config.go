package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config holds logger settings.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`

	// SentryLevel is the lowest level forwarded to Sentry: "warn" or "error".
	SentryLevel string `env:"SENTRY_LEVEL" envDefault:"warn"`
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: invalid level %q", s)
	}
	return l, nil
}
