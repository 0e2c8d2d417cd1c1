package cleanup

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueName is the River queue cleanup jobs run on.
const QueueName = "cloudstorage"

const (
	KindOrphanDelete = "cloudstorage.orphan_delete"
	KindReconcile    = "cloudstorage.reconcile"
)

// OrphanArgs identifies a stored file to delete.
type OrphanArgs struct {
	ResourceID string `json:"resource_id"`
	Filename   string `json:"filename"`
}

func (OrphanArgs) Kind() string { return KindOrphanDelete }

// InsertOpts drops duplicate requests for the same file within an hour.
func (OrphanArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:      QueueName,
		UniqueOpts: river.UniqueOpts{ByArgs: true, ByPeriod: time.Hour},
	}
}

// ReconcileArgs has no payload.
type ReconcileArgs struct{}

func (ReconcileArgs) Kind() string { return KindReconcile }

func (ReconcileArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: 3,
		UniqueOpts:  river.UniqueOpts{ByPeriod: 10 * time.Minute},
	}
}
