// -----------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026 9:15:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/indago/internal/models"
)

// JobListOptions filters and pages job listings
type JobListOptions struct {
	Status string // Filter by job status (empty = all)
	Limit  int
	Offset int
}

// JobStorage - durable record of research jobs, polled by clients.
// Update is safe to call repeatedly with the same record (progressive
// persistence after each round).
type JobStorage interface {
	Create(ctx context.Context, job *models.ResearchJob) error
	Update(ctx context.Context, job *models.ResearchJob) error
	Get(ctx context.Context, id string) (*models.ResearchJob, error)
	List(ctx context.Context, opts JobListOptions) ([]*models.ResearchJob, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// MarkRunningJobsFailed marks jobs left in running state by a previous
	// process as failed. Called once at startup.
	MarkRunningJobsFailed(ctx context.Context, code, message string) (int, error)

	// DeleteJobsOlderThan removes terminal jobs whose completion predates
	// the cutoff. Used by the retention sweep.
	DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	JobStorage() JobStorage
	KVStorage() KeyValueStorage

	// RunValueLogGC triggers Badger value-log garbage collection
	RunValueLogGC() error

	Close() error
}
