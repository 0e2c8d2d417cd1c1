package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/cloudstorage/internal/config"
	"github.com/dmitrymomot/cloudstorage/pkg/db"
	"github.com/dmitrymomot/cloudstorage/pkg/health"
	"github.com/dmitrymomot/cloudstorage/pkg/redis"
	"github.com/dmitrymomot/cloudstorage/pkg/storage"
	"github.com/dmitrymomot/cloudstorage/pkg/storage/providers"
	"github.com/dmitrymomot/cloudstorage/pkg/urlcache"
)

// errDatabaseRequired is returned by commands that need PostgreSQL when
// DATABASE_URL is unset.
var errDatabaseRequired = errors.New("DATABASE_URL is required for this command")

// runtime holds the opened dependencies. Optional ones are nil when not
// configured.
type runtime struct {
	backend  *storage.Backend
	cache    urlcache.Cache
	pool     *pgxpool.Pool
	redis    goredis.UniversalClient
	registry *prometheus.Registry
	log      *slog.Logger
}

// openRuntime connects Redis and PostgreSQL when configured, then opens the
// storage backend. Any failure closes what was already opened.
func openRuntime(ctx context.Context, cfg config.Config, log *slog.Logger, withDB bool) (_ *runtime, err error) {
	rt := &runtime{log: log, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			err = errors.Join(err, rt.close(context.Background()))
		}
	}()

	if cfg.MetricsEnabled {
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.RedisEnabled() {
		if rt.redis, err = redis.Connect(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}

	if withDB && cfg.DatabaseEnabled() {
		if rt.pool, err = db.Connect(ctx, cfg.DB); err != nil {
			return nil, err
		}
	}

	var opts []storage.Option
	if cfg.MetricsEnabled {
		opts = append(opts, storage.WithMetrics(rt.registry))
	}
	if cfg.URLCacheTTL > 0 {
		if rt.redis != nil {
			rt.cache = urlcache.NewRedis(rt.redis,
				urlcache.WithPrefix("cloudstorage:url:"),
				urlcache.WithRedisDefaultTTL(cfg.URLCacheTTL),
			)
		} else {
			rt.cache = urlcache.NewMemory(urlcache.WithDefaultTTL(cfg.URLCacheTTL))
		}
		opts = append(opts, storage.WithURLCache(rt.cache, cfg.URLCacheTTL))
	}

	if rt.backend, err = storage.Open(ctx, cfg.Storage, providers.Default(), opts...); err != nil {
		return nil, err
	}

	log.Info("storage backend opened",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("container", cfg.Storage.Container),
		slog.Bool("secure_urls", cfg.Storage.UseSecureURLs),
		slog.Bool("signing", rt.backend.AdvancedSecureURLSupport()),
	)
	return rt, nil
}

// checks returns a health check per opened dependency.
func (rt *runtime) checks() health.Checks {
	checks := health.Checks{}
	if rt.backend != nil {
		checks["storage"] = storage.Healthcheck(rt.backend)
	}
	if rt.pool != nil {
		checks["postgres"] = db.Healthcheck(rt.pool)
	}
	if rt.redis != nil {
		checks["redis"] = redis.Healthcheck(rt.redis)
	}
	return checks
}

// close releases dependencies in reverse order of opening.
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	if rt.backend != nil {
		errs = append(errs, rt.backend.Close())
	}
	if rt.cache != nil {
		errs = append(errs, rt.cache.Close())
	}
	if rt.pool != nil {
		errs = append(errs, db.Shutdown(rt.pool)(ctx))
	}
	if rt.redis != nil {
		errs = append(errs, redis.Shutdown(rt.redis)(ctx))
	}
	return errors.Join(errs...)
}
