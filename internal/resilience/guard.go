package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/pkg/utils"
)

// Guard wraps every call to one class of upstream (renderer or model) with
// a rate limiter, a retry policy and an optional circuit breaker
type Guard struct {
	name     string
	policy   Policy
	limiter  Limiter
	breakers *Breakers
}

// NewGuard assembles a guard; limiter and breakers may be nil to disable them
func NewGuard(name string, policy Policy, limiter Limiter, breakers *Breakers) *Guard {
	return &Guard{
		name:     name,
		policy:   policy,
		limiter:  limiter,
		breakers: breakers,
	}
}

// Do runs fn for key under the guard's policy.
// Limiter and breaker rejections are returned before fn runs and are never retried.
func (g *Guard) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, key); err != nil {
			return fmt.Errorf("%s %s: %w: %w", g.name, key, ErrRateLimited, err)
		}
	}

	if g.breakers != nil && !g.breakers.Allow(key) {
		return fmt.Errorf("%s %s: %w", g.name, key, ErrCircuitOpen)
	}

	err := Retry(ctx, g.policy, g.name, fn)

	if g.breakers != nil {
		switch {
		case err == nil:
			g.breakers.RecordSuccess(key)
		case errors.Is(err, context.Canceled):
			g.breakers.Release(key)
		case Retryable(err):
			g.breakers.RecordFailure(key, err)
		default:
			// the upstream answered; a rejected request says nothing about its health
			g.breakers.RecordSuccess(key)
		}
	}

	return err
}

// Policy returns the retry policy in use
func (g *Guard) Policy() Policy {
	return g.policy
}

// Stats returns breaker statistics
func (g *Guard) Stats() map[string]map[string]interface{} {
	if g.breakers == nil {
		return map[string]map[string]interface{}{}
	}
	return g.breakers.Stats()
}

// Close releases the limiter and stops breaker cleanup
func (g *Guard) Close() error {
	var errs []error
	if g.limiter != nil {
		errs = append(errs, g.limiter.Close())
	}
	if g.breakers != nil {
		errs = append(errs, g.breakers.Close())
	}
	return errors.Join(errs...)
}

// NewGuards builds the render and model guards from configuration.
// With rate_limit.redis_url set both share one Redis client.
func NewGuards(ctx context.Context, cfg *config.Config) (render *Guard, llm *Guard, err error) {
	renderLimiter, llmLimiter, err := newLimiters(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	render = NewGuard("render", RenderPolicy(cfg), renderLimiter, newBreakers(cfg))
	llm = NewGuard("llm", LLMPolicy(cfg), llmLimiter, newBreakers(cfg))
	return render, llm, nil
}

// newBreakers returns nil unless resilience.breaker_enabled is set
func newBreakers(cfg *config.Config) *Breakers {
	if !cfg.Resilience.BreakerEnabled {
		return nil
	}
	return NewBreakers(cfg.Resilience.BreakerMaxFailures, cfg.Resilience.BreakerResetTimeout)
}

func newLimiters(ctx context.Context, cfg *config.Config) (Limiter, Limiter, error) {
	rl := cfg.RateLimit
	if rl.RedisURL == "" {
		return NewLocalLimiter(rl.RenderPerMinute, rl.Burst), NewLocalLimiter(rl.LLMPerMinute, rl.Burst), nil
	}

	client, err := utils.NewRedisClient(rl.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := utils.PingRedis(ctx, client, 3*time.Second); err != nil {
		logging.GetGlobalLogger().Warn("Redis unreachable at startup, limiter will fail open", map[string]interface{}{
			"error": err.Error(),
		})
	}

	render := NewRedisLimiter(client, rl.KeyPrefix+":render", rl.RenderPerMinute)
	// the model limiter shares the client; only the render limiter closes it
	llm := &sharedRedisLimiter{NewRedisLimiter(client, rl.KeyPrefix+":llm", rl.LLMPerMinute)}
	return render, llm, nil
}

type sharedRedisLimiter struct {
	*RedisLimiter
}

func (s *sharedRedisLimiter) Close() error { return nil }
