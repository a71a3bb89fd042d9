// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package research

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// Service implements the research submission and polling surface. Jobs
// are persisted before they are enqueued so a crash between the two
// never loses an accepted submission.
type Service struct {
	storage   interfaces.JobStorage
	processor *Processor
	config    *common.ResearchConfig
	validate  *validator.Validate
	logger    arbor.ILogger
}

func NewService(storage interfaces.JobStorage, processor *Processor, config *common.ResearchConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage:   storage,
		processor: processor,
		config:    config,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Submit validates the request, creates a pending job and hands it to
// the worker pool. The job ID is returned immediately for polling.
func (s *Service) Submit(ctx context.Context, req interfaces.SubmitRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("invalid research request: %w", err)
	}

	options := s.applyDefaults(req.Options)
	job := models.NewResearchJob(common.NewJobID(), req.Topic, options)

	if err := s.storage.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.processor.Enqueue(job.ID); err != nil {
		// The job stays pending in storage; the queue is full
		s.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to enqueue job")
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("topic", job.Topic).
		Int("max_rounds", options.MaxRounds).
		Msg("Research job submitted")

	return job.ID, nil
}

// Status returns the polling view of a job. Polling is read-only and
// repeatable at any stage of the job lifecycle.
func (s *Service) Status(ctx context.Context, jobID string) (*interfaces.JobProgress, error) {
	job, err := s.storage.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	budget := job.Options.MaxRounds
	if budget <= 0 {
		budget = s.config.MaxRounds
	}

	return &interfaces.JobProgress{
		JobID:             job.ID,
		Status:            job.Status,
		RoundsCompleted:   job.RoundsCompleted(),
		TotalRoundsBudget: budget,
		Error:             job.Error,
	}, nil
}

// Get returns the full job record including rounds, analysis and
// rendered documents.
func (s *Service) Get(ctx context.Context, jobID string) (*models.ResearchJob, error) {
	return s.storage.Get(ctx, jobID)
}

// List returns jobs matching the options, newest first.
func (s *Service) List(ctx context.Context, opts interfaces.JobListOptions) ([]*models.ResearchJob, error) {
	return s.storage.List(ctx, opts)
}

// applyDefaults fills unset job options from service configuration and
// clamps round and result budgets to configured ceilings.
func (s *Service) applyDefaults(options models.JobOptions) models.JobOptions {
	if options.MaxRounds <= 0 || options.MaxRounds > s.config.MaxRounds {
		options.MaxRounds = s.config.MaxRounds
	}
	if options.MaxResultsPerRound <= 0 || options.MaxResultsPerRound > s.config.MaxResultsPerRound {
		options.MaxResultsPerRound = s.config.MaxResultsPerRound
	}
	return options
}
