// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package research

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

const queueCapacity = 256

// Processor is the channel-fed worker pool that executes research
// jobs. Workers receive job IDs only; all job state moves through the
// job store, never through the channel.
type Processor struct {
	runner      *Runner
	storage     interfaces.JobStorage
	concurrency int
	queue       chan string
	logger      arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewProcessor(runner *Runner, storage interfaces.JobStorage, concurrency int, logger arbor.ILogger) *Processor {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		runner:      runner,
		storage:     storage,
		concurrency: concurrency,
		queue:       make(chan string, queueCapacity),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start recovers jobs orphaned by a previous run, then launches the
// worker goroutines. Running jobs cannot be resumed and are marked
// failed; pending jobs lost with the in-memory queue are re-enqueued.
func (p *Processor) Start() error {
	recovered, err := p.storage.MarkRunningJobsFailed(p.ctx, models.JobErrorCodeInterrupted, "process restarted while job was running")
	if err != nil {
		return fmt.Errorf("failed to recover interrupted jobs: %w", err)
	}
	if recovered > 0 {
		p.logger.Warn().
			Int("count", recovered).
			Msg("Marked interrupted jobs as failed")
	}

	if err := p.requeuePending(); err != nil {
		return err
	}

	for i := 0; i < p.concurrency; i++ {
		workerID := i
		p.wg.Add(1)
		common.SafeGo(p.logger, fmt.Sprintf("research-worker-%d", workerID), func() {
			p.worker(workerID)
		})
	}

	p.logger.Info().
		Int("concurrency", p.concurrency).
		Msg("Research worker pool started")

	return nil
}

// requeuePending puts durably created pending jobs back on the queue.
// The queue itself is in-memory, so anything accepted but not started
// before the last shutdown only exists in the job store.
func (p *Processor) requeuePending() error {
	pending, err := p.storage.List(p.ctx, interfaces.JobListOptions{
		Status: string(models.JobStatusPending),
	})
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}

	requeued := 0
	// List is newest first; enqueue oldest first to preserve submission order
	for i := len(pending) - 1; i >= 0; i-- {
		if err := p.Enqueue(pending[i].ID); err != nil {
			p.logger.Warn().
				Err(err).
				Str("job_id", pending[i].ID).
				Msg("Could not re-enqueue pending job")
			break
		}
		requeued++
	}

	if requeued > 0 {
		p.logger.Info().
			Int("count", requeued).
			Msg("Re-enqueued pending jobs from previous run")
	}

	return nil
}

// Stop drains nothing: in-flight jobs observe context cancellation and
// the restart recovery sweep covers whatever could not finish.
func (p *Processor) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("Research worker pool stopped")
}

// Enqueue hands a job ID to the pool. Fails fast when the queue is
// full rather than blocking the submitter.
func (p *Processor) Enqueue(jobID string) error {
	select {
	case p.queue <- jobID:
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	p.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case jobID := <-p.queue:
			if err := p.runner.Run(p.ctx, jobID); err != nil {
				p.logger.Error().
					Err(err).
					Str("job_id", jobID).
					Int("worker_id", workerID).
					Msg("Research job failed")
			}
		}
	}
}
