package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) Create(ctx context.Context, job *models.ResearchJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Insert(job.ID, job); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("job already exists: %s", job.ID)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStorage) Update(ctx context.Context, job *models.ResearchJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	job.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (s *JobStorage) Get(ctx context.Context, id string) (*models.ResearchJob, error) {
	var job models.ResearchJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) List(ctx context.Context, opts interfaces.JobListOptions) ([]*models.ResearchJob, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts.Status != "" {
		query = query.And("Status").Eq(models.JobStatus(opts.Status))
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	query = query.SortBy("CreatedAt").Reverse()

	var jobs []models.ResearchJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.ResearchJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.ResearchJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *JobStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ResearchJob{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// MarkRunningJobsFailed marks jobs interrupted by a process restart as failed.
// Running jobs cannot survive a restart because the worker loop holds all
// in-flight round state in memory.
func (s *JobStorage) MarkRunningJobsFailed(ctx context.Context, code, message string) (int, error) {
	var jobs []models.ResearchJob
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusRunning)); err != nil {
		return 0, fmt.Errorf("failed to find running jobs: %w", err)
	}

	count := 0
	now := time.Now()
	for i := range jobs {
		job := &jobs[i]
		job.Status = models.JobStatusFailed
		job.Error = &models.JobError{Code: code, Message: message}
		job.CompletedAt = &now
		job.UpdatedAt = now
		if err := s.db.Store().Upsert(job.ID, job); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to mark interrupted job as failed")
			continue
		}
		count++
	}
	return count, nil
}

// DeleteJobsOlderThan removes terminal jobs completed before the cutoff
func (s *JobStorage) DeleteJobsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var jobs []models.ResearchJob
	query := badgerhold.Where("Status").In(models.JobStatusCompleted, models.JobStatusFailed).
		And("UpdatedAt").Lt(cutoff)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to find expired jobs: %w", err)
	}

	count := 0
	for i := range jobs {
		if err := s.db.Store().Delete(jobs[i].ID, &models.ResearchJob{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to delete expired job")
			continue
		}
		count++
	}
	return count, nil
}
