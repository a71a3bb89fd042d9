package screenshot

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryPolicy defines bounded retry with linear backoff: the delay before
// attempt N+1 is N times BaseDelay. Sleep is injectable so tests can run
// with a fake clock.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a retry policy with a real clock
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Sleep:       sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs fn up to MaxAttempts times, sleeping attempt*BaseDelay
// between failures. fn receives the 1-based attempt number. Returns the
// last error when all attempts fail.
func (p *RetryPolicy) Execute(ctx context.Context, logger arbor.ILogger, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		backoff := time.Duration(attempt) * p.BaseDelay
		logger.Debug().
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Retrying after backoff")

		if err := p.Sleep(ctx, backoff); err != nil {
			return err
		}
	}

	logger.Warn().
		Int("max_attempts", p.MaxAttempts).
		Err(lastErr).
		Msg("All retry attempts exhausted")

	return lastErr
}
