package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/cloudstorage/pkg/health"
	"github.com/dmitrymomot/cloudstorage/pkg/logger"
)

type routerConfig struct {
	log           *slog.Logger
	gatherer      prometheus.Gatherer
	checks        health.Checks
	jwtSecret     string
	corsOrigins   []string
	maxUploadSize int64
}

// Option configures the router.
type Option func(*routerConfig)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *routerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithJWTSecret guards mutating routes with RequireAuth.
func WithJWTSecret(secret string) Option {
	return func(c *routerConfig) {
		c.jwtSecret = secret
	}
}

// WithCORSOrigins sets the allowed origins. Defaults to "*".
func WithCORSOrigins(origins ...string) Option {
	return func(c *routerConfig) {
		if len(origins) > 0 {
			c.corsOrigins = origins
		}
	}
}

// WithMaxUploadSize caps request bodies on mutating routes. Zero disables the cap.
func WithMaxUploadSize(n int64) Option {
	return func(c *routerConfig) {
		c.maxUploadSize = n
	}
}

// WithHealthChecks sets the readiness checks.
func WithHealthChecks(checks health.Checks) Option {
	return func(c *routerConfig) {
		c.checks = checks
	}
}

// WithMetrics mounts /metrics for g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(c *routerConfig) {
		c.gatherer = g
	}
}

// NewRouter builds the HTTP handler for resources.
func NewRouter(resources Resources, opts ...Option) http.Handler {
	cfg := &routerConfig{
		log:         logger.NewNope(),
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &handler{resources: resources, log: cfg.log, maxUploadSize: cfg.maxUploadSize}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Location", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(cfg.checks,
		health.WithTimeout(5*time.Second),
		health.WithLogger(cfg.log),
	))

	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/resources", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.jwtSecret != "" {
				r.Use(RequireAuth(cfg.jwtSecret))
			}
			r.Post("/", h.create)
			r.Patch("/{id}", h.update)
		})

		r.Get("/{id}", h.get)
		r.Get("/{id}/download", h.download)
		r.Get("/{id}/download/{filename}", h.download)
	})

	return r
}
