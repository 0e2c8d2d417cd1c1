// Package db provides the PostgreSQL pool shared by the resource store and
// the cleanup queue.
//
// Settings come from the environment:
//
//	DATABASE_URL                - PostgreSQL connection URL
//	DATABASE_MAX_CONNS          - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 2s)
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: cloudstorage_migrations)
//
// Schema migrations are applied with goose from an embedded filesystem:
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := db.Migrate(ctx, pool, resource.Migrations, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
package db
