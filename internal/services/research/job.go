// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package research

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
	"github.com/ternarybob/indago/internal/services/summarizer"
)

// Runner executes a research job end to end: the round loop, final
// synthesis and document rendering. State is persisted after every
// round so a poller always sees current progress.
type Runner struct {
	storage    interfaces.JobStorage
	orch       *Orchestrator
	summarizer interfaces.Summarizer
	config     *common.ResearchConfig
	logger     arbor.ILogger
}

func NewRunner(
	storage interfaces.JobStorage,
	orch *Orchestrator,
	sum interfaces.Summarizer,
	config *common.ResearchConfig,
	logger arbor.ILogger,
) *Runner {
	return &Runner{
		storage:    storage,
		orch:       orch,
		summarizer: sum,
		config:     config,
		logger:     logger,
	}
}

// Run loads the job, drives it to a terminal state and persists the
// outcome. A panic in any stage marks the job failed rather than
// killing the worker.
func (r *Runner) Run(ctx context.Context, jobID string) (err error) {
	job, err := r.storage.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("job_id", jobID).
				Str("panic", fmt.Sprintf("%v", rec)).
				Str("stack", string(debug.Stack())).
				Msg("Research job panicked")
			r.markFailed(ctx, job, models.JobErrorCodeInternal, fmt.Sprintf("internal error: %v", rec))
			err = fmt.Errorf("job %s panicked: %v", jobID, rec)
		}
	}()

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	job.UpdatedAt = now
	if err := r.storage.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	r.logger.Info().
		Str("job_id", job.ID).
		Str("topic", job.Topic).
		Msg("Research job started")

	if err := r.runRounds(ctx, job); err != nil {
		r.markFailed(ctx, job, models.JobErrorCodeInternal, err.Error())
		return err
	}

	r.finalize(ctx, job)

	job.Status = models.JobStatusCompleted
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.UpdatedAt = completedAt
	if err := r.storage.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to persist completed job: %w", err)
	}

	r.logger.Info().
		Str("job_id", job.ID).
		Int("rounds", job.RoundsCompleted()).
		Msg("Research job completed")

	return nil
}

// runRounds drives the search loop. It ends when the analysis offers
// no follow-up query, the round budget is spent, or an empty round
// hits a stop policy.
func (r *Runner) runRounds(ctx context.Context, job *models.ResearchJob) error {
	budget := job.Options.MaxRounds
	if budget <= 0 {
		budget = r.config.MaxRounds
	}

	query := job.Topic
	for roundNumber := 1; roundNumber <= budget; roundNumber++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("job cancelled: %w", err)
		}

		round := r.orch.ExecuteRound(ctx, job.Topic, query, roundNumber, job.Options)
		job.AppendRound(*round)

		if err := r.storage.Update(ctx, job); err != nil {
			return fmt.Errorf("failed to persist round %d: %w", roundNumber, err)
		}

		if len(round.Results) == 0 && r.config.EmptyRoundPolicy == common.EmptyRoundStop {
			r.logger.Info().
				Str("job_id", job.ID).
				Int("round", roundNumber).
				Msg("Empty round, stopping research loop")
			break
		}

		if round.NextQuery == nil {
			break
		}
		query = *round.NextQuery
	}

	return nil
}

// finalize synthesizes the cross-round analysis and renders the report
// documents. Rendering never fails the job; the summarizer degrades to
// deterministic fallbacks.
func (r *Runner) finalize(ctx context.Context, job *models.ResearchJob) {
	allResults := make([]models.SearchResult, 0)
	for _, round := range job.Rounds {
		allResults = append(allResults, round.Results...)
	}
	// Rounds only dedupe within themselves; the same URL can recur
	// across rounds and must collapse before synthesis.
	allResults = DedupeResults(allResults)

	analysis := r.summarizer.Synthesize(ctx, allResults, job.Topic)
	job.Analysis = &analysis

	if job.Options.GenerateMarkdown {
		job.Markdown = summarizer.RenderMarkdown(job.Topic, job.Rounds, analysis, job.Screenshots)
	}

	job.Document = r.summarizer.RenderDocument(ctx, analysis, job.Topic, job.Screenshots)
}

func (r *Runner) markFailed(ctx context.Context, job *models.ResearchJob, code, message string) {
	job.Status = models.JobStatusFailed
	job.Error = &models.JobError{Code: code, Message: message}
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.UpdatedAt = completedAt

	if err := r.storage.Update(ctx, job); err != nil {
		r.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to persist failed job state")
	}
}
