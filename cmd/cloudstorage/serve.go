package main

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/cloudstorage/internal/httpapi"
	"github.com/dmitrymomot/cloudstorage/pkg/cleanup"
	"github.com/dmitrymomot/cloudstorage/pkg/resource"
)

func newServeCommand(c *cli) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, with a database, the cleanup worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func (c *cli) serve(ctx context.Context, migrate bool) error {
	rt, err := openRuntime(ctx, c.cfg, c.log, true)
	if err != nil {
		return err
	}

	var (
		store        resource.Store
		svcOpts      = []resource.Option{resource.WithLogger(c.log)}
		startupHooks []httpapi.Hook
		stopHooks    []httpapi.Hook
	)

	if rt.pool != nil {
		if migrate {
			if err := applyMigrations(ctx, rt.pool, c.cfg.DB.MigrationsTable, c.log); err != nil {
				return errors.Join(err, rt.close(ctx))
			}
		}

		pgStore := resource.NewPostgresStore(rt.pool)
		store = pgStore

		cleanupOpts := []cleanup.Option{cleanup.WithLogger(c.log)}
		if c.cfg.MetricsEnabled {
			cleanupOpts = append(cleanupOpts, cleanup.WithMetrics(rt.registry))
		}
		mgr, err := cleanup.NewManager(rt.pool, rt.backend, pgStore, c.cfg.Cleanup, cleanupOpts...)
		if err != nil {
			return errors.Join(err, rt.close(ctx))
		}
		svcOpts = append(svcOpts, resource.WithOrphanQueue(mgr))
		startupHooks = append(startupHooks, mgr.Start)
		stopHooks = append(stopHooks, func(ctx context.Context) error {
			if err := mgr.Stop(ctx); err != nil && !errors.Is(err, cleanup.ErrNotStarted) {
				return err
			}
			return nil
		})
	} else {
		c.log.Warn("DATABASE_URL is not set; resources are kept in memory and orphan cleanup is disabled")
		store = resource.NewMemoryStore()
	}
	stopHooks = append(stopHooks, rt.close)

	checks := rt.checks()
	routerOpts := []httpapi.Option{
		httpapi.WithLogger(c.log),
		httpapi.WithHealthChecks(checks),
		httpapi.WithCORSOrigins(c.cfg.HTTP.CORSOrigins...),
		httpapi.WithMaxUploadSize(c.cfg.HTTP.MaxUploadSize),
	}
	if c.cfg.AuthEnabled() {
		routerOpts = append(routerOpts, httpapi.WithJWTSecret(c.cfg.HTTP.JWTSecret))
	} else {
		c.log.Warn("AUTH_JWT_SECRET is not set; mutating endpoints are open")
	}
	if c.cfg.MetricsEnabled {
		routerOpts = append(routerOpts, httpapi.WithMetrics(rt.registry))
	}

	svc := resource.NewService(store, rt.backend, svcOpts...)

	c.log.Info("starting cloudstorage",
		slog.String("address", c.cfg.HTTP.Address),
		slog.Any("checks", slices.Sorted(maps.Keys(checks))),
	)

	return httpapi.Serve(ctx, httpapi.ServerConfig{
		Handler:         httpapi.NewRouter(svc, routerOpts...),
		Logger:          c.log,
		Address:         c.cfg.HTTP.Address,
		ShutdownTimeout: c.cfg.HTTP.ShutdownTimeout,
		ReadTimeout:     c.cfg.HTTP.ReadTimeout,
		StartupHooks:    startupHooks,
		ShutdownHooks:   stopHooks,
	})
}
