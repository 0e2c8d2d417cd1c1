// Package config loads the service configuration from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. Variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/cloudstorage/pkg/cleanup"
	"github.com/dmitrymomot/cloudstorage/pkg/db"
	"github.com/dmitrymomot/cloudstorage/pkg/logger"
	"github.com/dmitrymomot/cloudstorage/pkg/redis"
	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// ErrInvalidConfig is returned when the environment cannot be parsed.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// HTTP holds the API server settings.
type HTTP struct {
	Address         string        `env:"HTTP_ADDRESS" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	MaxUploadSize   int64         `env:"HTTP_MAX_UPLOAD_SIZE" envDefault:"104857600"`
	CORSOrigins     []string      `env:"HTTP_CORS_ORIGINS" envSeparator:","`

	// JWTSecret guards mutating endpoints with HMAC-signed bearer tokens.
	// Empty leaves them open.
	JWTSecret string `env:"AUTH_JWT_SECRET"`
}

// Config is the full service configuration.
type Config struct {
	Storage storage.Config `envPrefix:"CLOUDSTORAGE_"`
	Logger  logger.Config
	DB      db.Config
	Redis   redis.Config
	Cleanup cleanup.Config
	HTTP    HTTP

	// URLCacheTTL bounds how long a resolved download URL is reused.
	// Zero disables caching.
	URLCacheTTL time.Duration `env:"URL_CACHE_TTL" envDefault:"5m"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load reads the given .env files, then parses the environment.
// Missing files are skipped. With no files, ".env" is tried.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, f, err)
		}
	}
	return Parse()
}

// Parse reads the configuration from environment variables only.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ParseEnv reads the configuration from an explicit variable set instead of
// the process environment.
func ParseEnv(vars map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: vars})
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// DatabaseEnabled reports whether a PostgreSQL URL is configured.
func (c Config) DatabaseEnabled() bool {
	return strings.TrimSpace(c.DB.URL) != ""
}

// RedisEnabled reports whether a Redis URL is configured.
func (c Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.URL) != ""
}

// AuthEnabled reports whether mutating endpoints require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.HTTP.JWTSecret != ""
}
