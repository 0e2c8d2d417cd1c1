package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/cloudstorage/pkg/cleanup"
	"github.com/dmitrymomot/cloudstorage/pkg/db"
	"github.com/dmitrymomot/cloudstorage/pkg/resource"
)

func newMigrateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply resource and job queue schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !c.cfg.DatabaseEnabled() {
				return errDatabaseRequired
			}
			pool, err := db.Connect(ctx, c.cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			return applyMigrations(ctx, pool, c.cfg.DB.MigrationsTable, c.log)
		},
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool, table string, log *slog.Logger) error {
	if err := db.Migrate(ctx, pool, resource.Migrations(), table, log); err != nil {
		return err
	}
	return cleanup.Migrate(ctx, pool, log)
}

func newReconcileCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Enqueue a check of every upload record against the container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !c.cfg.DatabaseEnabled() {
				return errDatabaseRequired
			}
			rt, err := openRuntime(ctx, c.cfg, c.log, true)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(ctx) }()

			store := resource.NewPostgresStore(rt.pool)
			mgr, err := cleanup.NewManager(rt.pool, rt.backend, store, c.cfg.Cleanup, cleanup.WithLogger(c.log))
			if err != nil {
				return err
			}
			if err := mgr.EnqueueReconcile(ctx); err != nil {
				return err
			}
			c.log.Info("reconcile job enqueued", slog.String("queue", cleanup.QueueName))
			return nil
		},
	}
}
