package interfaces

import (
	"context"

	"github.com/ternarybob/indago/internal/models"
)

// SubmitRequest is the research submission payload
type SubmitRequest struct {
	Topic   string            `json:"topic" validate:"required,min=2,max=500"`
	Options models.JobOptions `json:"options"`
}

// JobProgress is the polling view of a job
type JobProgress struct {
	JobID             string           `json:"job_id"`
	Status            models.JobStatus `json:"status"`
	RoundsCompleted   int              `json:"rounds_completed"`
	TotalRoundsBudget int              `json:"total_rounds_budget"`
	Error             *models.JobError `json:"error,omitempty"`
}

// ResearchService is the boundary the HTTP handlers depend on.
type ResearchService interface {
	// Submit validates the request, durably creates a pending job, and
	// enqueues it for background execution. Returns the job ID immediately.
	Submit(ctx context.Context, req SubmitRequest) (string, error)

	// Status reads the polling view of a job
	Status(ctx context.Context, jobID string) (*JobProgress, error)

	// Get returns the full job record
	Get(ctx context.Context, jobID string) (*models.ResearchJob, error)

	// List returns jobs matching the options
	List(ctx context.Context, opts JobListOptions) ([]*models.ResearchJob, error)
}
