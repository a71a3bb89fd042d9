// -----------------------------------------------------------------------
// Last Modified: Friday, 29th August 2026
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package research

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
)

// RetentionSweeper periodically deletes terminal jobs older than the
// configured age and reclaims value-log space afterwards.
type RetentionSweeper struct {
	storage interfaces.StorageManager
	config  *common.ResearchConfig
	cron    *cron.Cron
	logger  arbor.ILogger
}

func NewRetentionSweeper(storage interfaces.StorageManager, config *common.ResearchConfig, logger arbor.ILogger) *RetentionSweeper {
	return &RetentionSweeper{
		storage: storage,
		config:  config,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start schedules the sweep. A zero max age disables retention.
func (r *RetentionSweeper) Start() error {
	if r.config.RetentionMaxAge <= 0 {
		r.logger.Info().Msg("Job retention disabled")
		return nil
	}

	_, err := r.cron.AddFunc(r.config.RetentionSchedule, r.sweep)
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", r.config.RetentionSchedule, err)
	}

	r.cron.Start()
	r.logger.Info().
		Str("schedule", r.config.RetentionSchedule).
		Str("max_age", r.config.RetentionMaxAge.String()).
		Msg("Job retention sweep scheduled")

	return nil
}

func (r *RetentionSweeper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *RetentionSweeper) sweep() {
	cutoff := time.Now().Add(-r.config.RetentionMaxAge)

	deleted, err := r.storage.JobStorage().DeleteJobsOlderThan(context.Background(), cutoff)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("Retention sweep failed")
		return
	}

	if deleted > 0 {
		r.logger.Info().
			Int("deleted", deleted).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Expired research jobs removed")

		if err := r.storage.RunValueLogGC(); err != nil {
			// ErrNoRewrite just means there was nothing to reclaim
			r.logger.Debug().
				Err(err).
				Msg("Value log GC finished without rewrite")
		}
	}
}
