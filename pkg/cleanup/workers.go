package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/riverqueue/river"

	"github.com/dmitrymomot/cloudstorage/pkg/filename"
	"github.com/dmitrymomot/cloudstorage/pkg/logger"
	"github.com/dmitrymomot/cloudstorage/pkg/resource"
	"github.com/dmitrymomot/cloudstorage/pkg/storage"
)

// Backend is the storage surface the workers need.
type Backend interface {
	Apply(ctx context.Context, resourceID string, intent storage.Intent) error
	Container() storage.Container
}

// Records reads resource records. Get reports resource.ErrNotFound for
// unknown ids.
type Records interface {
	Get(ctx context.Context, id string) (resource.Record, error)
	ListUploads(ctx context.Context, after string, limit int) ([]resource.Record, error)
}

type orphanWorker struct {
	river.WorkerDefaults[OrphanArgs]
	backend Backend
	records Records
	log     *slog.Logger
}

func (w *orphanWorker) Work(ctx context.Context, job *river.Job[OrphanArgs]) error {
	ctx = logger.WithResourceID(ctx, job.Args.ResourceID)

	// The record may point at the file again after a rename back or a
	// re-upload under the same name; that file is live, not an orphan.
	if err := w.checkOrphaned(ctx, job.Args); err != nil {
		if errors.Is(err, ErrFileInUse) {
			w.log.InfoContext(ctx, "orphan delete skipped",
				slog.String("filename", job.Args.Filename),
				slog.String("reason", err.Error()),
			)
			return river.JobCancel(err)
		}
		return err
	}

	err := w.backend.Apply(ctx, job.Args.ResourceID, storage.Clear{PriorFilename: job.Args.Filename})
	switch {
	case err == nil:
		w.log.InfoContext(ctx, "orphan deleted",
			slog.String("filename", job.Args.Filename),
			slog.Int("attempt", job.Attempt),
		)
		return nil
	case errors.Is(err, storage.ErrInvalidResourceID), errors.Is(err, storage.ErrInvalidIntent):
		w.log.ErrorContext(ctx, "orphan delete cancelled", slog.String("error", err.Error()))
		return river.JobCancel(err)
	default:
		w.log.WarnContext(ctx, "orphan delete failed",
			slog.String("filename", job.Args.Filename),
			slog.Int("attempt", job.Attempt),
			slog.String("error", err.Error()),
		)
		return err
	}
}

// checkOrphaned returns ErrFileInUse when the resource still references
// the file. A deleted resource leaves its files orphaned.
func (w *orphanWorker) checkOrphaned(ctx context.Context, args OrphanArgs) error {
	if w.records == nil {
		return nil
	}

	rec, err := w.records.Get(ctx, args.ResourceID)
	switch {
	case errors.Is(err, resource.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("cleanup: load resource: %w", err)
	}

	if rec.Uploaded() && filename.Munge(rec.URL) == filename.Munge(args.Filename) {
		return fmt.Errorf("%w: %s", ErrFileInUse, filename.Munge(args.Filename))
	}
	return nil
}

const reconcilePageSize = 200

type reconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]
	backend Backend
	uploads Records
	missing prometheus.Gauge
	log     *slog.Logger
}

func (w *reconcileWorker) Work(ctx context.Context, _ *river.Job[ReconcileArgs]) error {
	checked, missing, err := w.reconcile(ctx)
	if err != nil {
		return err
	}
	if w.missing != nil {
		w.missing.Set(float64(missing))
	}
	w.log.InfoContext(ctx, "reconcile finished",
		slog.Int("checked", checked),
		slog.Int("missing", missing),
	)
	return nil
}

func (w *reconcileWorker) reconcile(ctx context.Context) (checked, missing int, err error) {
	container := w.backend.Container()

	var after string
	for {
		page, err := w.uploads.ListUploads(ctx, after, reconcilePageSize)
		if err != nil {
			return checked, missing, fmt.Errorf("cleanup: list uploads: %w", err)
		}

		for _, rec := range page {
			path, err := storage.DerivePath(rec.ID, rec.URL)
			if err != nil {
				continue
			}
			checked++

			if _, err := container.GetObject(ctx, path); err != nil {
				if !errors.Is(err, storage.ErrObjectNotFound) {
					return checked, missing, fmt.Errorf("cleanup: stat %s: %w", path, err)
				}
				missing++
				w.log.WarnContext(logger.WithResourceID(ctx, rec.ID), "uploaded file missing",
					slog.String("path", path),
				)
			}
		}

		if len(page) < reconcilePageSize {
			return checked, missing, nil
		}
		after = page[len(page)-1].ID
	}
}
