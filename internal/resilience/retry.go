package resilience

import (
	"context"
	"time"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/logging"
)

// Policy bounds the retries around one external call
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration // per attempt, zero means none
}

// NoRetry performs exactly one attempt
var NoRetry = Policy{MaxAttempts: 1}

// RenderPolicy returns the policy for rendering proxy calls
func RenderPolicy(cfg *config.Config) Policy {
	return Policy{
		MaxAttempts: cfg.Resilience.MaxAttempts,
		BaseDelay:   cfg.Resilience.BaseDelay,
		MaxDelay:    cfg.Resilience.MaxDelay,
		Timeout:     cfg.Resilience.RenderTimeout,
	}
}

// LLMPolicy returns the policy for generative model calls
func LLMPolicy(cfg *config.Config) Policy {
	return Policy{
		MaxAttempts: cfg.Resilience.MaxAttempts,
		BaseDelay:   cfg.Resilience.BaseDelay,
		MaxDelay:    cfg.Resilience.MaxDelay,
		Timeout:     cfg.Resilience.LLMTimeout,
	}
}

// Backoff returns the delay before the given retry (1-based), doubling from BaseDelay up to MaxDelay
func (p Policy) Backoff(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}

	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// sleep is swapped in tests
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the policy is exhausted.
// Each attempt gets its own timeout derived from ctx. The last error is returned unchanged.
func Retry(ctx context.Context, policy Policy, operation string, fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	logger := logging.GetGlobalLogger().WithContext(ctx)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = attemptOnce(ctx, policy.Timeout, fn)
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retry", map[string]interface{}{
					"operation": operation,
					"attempt":   attempt,
				})
			}
			return nil
		}

		if ctx.Err() != nil || !Retryable(err) || attempt == attempts {
			return err
		}

		delay := policy.Backoff(attempt)
		logger.Warn("Operation failed, retrying", map[string]interface{}{
			"operation": operation,
			"attempt":   attempt,
			"max":       attempts,
			"delay":     delay.String(),
			"error":     err.Error(),
		})

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}

	return err
}

func attemptOnce(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
