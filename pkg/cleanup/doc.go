// Package cleanup runs deferred storage maintenance on a River queue backed
// by PostgreSQL.
//
// Two job kinds are processed:
//
//   - cloudstorage.orphan_delete removes a stored file that no record points
//     at any more, such as the previous file after an upload under a new
//     name, or a file whose clear failed. River retries failed attempts.
//   - cloudstorage.reconcile walks every upload record and reports those
//     whose file is missing from the container. It runs on a cron schedule.
//
// Jobs can be enqueued before Start; they are processed once a manager with
// workers runs against the same database.
//
//	if err := cleanup.Migrate(ctx, pool, log); err != nil {
//		return err
//	}
//	m, err := cleanup.NewManager(pool, backend, store, cfg, cleanup.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.Stop(context.Background())
package cleanup
