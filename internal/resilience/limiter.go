package resilience

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fitcheck-ingest/internal/logging"
)

// Limiter paces outbound calls per key. Wait blocks until a call is allowed or ctx ends.
type Limiter interface {
	Wait(ctx context.Context, key string) error
	Close() error
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	requests int64
}

// LocalLimiter keeps an in-process token bucket per key
type LocalLimiter struct {
	perMinute     int
	burst         int
	limiters      map[string]*keyLimiter
	logger        logging.Logger
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
	mu            sync.Mutex
}

// NewLocalLimiter creates a limiter allowing perMinute calls per key with the given burst.
// A non-positive perMinute disables limiting.
func NewLocalLimiter(perMinute, burst int) *LocalLimiter {
	if burst < 1 {
		burst = 1
	}

	rl := &LocalLimiter{
		perMinute:     perMinute,
		burst:         burst,
		limiters:      make(map[string]*keyLimiter),
		logger:        logging.GetGlobalLogger().WithField("component", "rate_limiter"),
		cleanupTicker: time.NewTicker(5 * time.Minute),
		stopCleanup:   make(chan struct{}),
	}

	go rl.cleanupRoutine()

	return rl
}

// Wait blocks until the bucket for key has a token
func (rl *LocalLimiter) Wait(ctx context.Context, key string) error {
	if rl.perMinute <= 0 {
		return ctx.Err()
	}
	return rl.getKeyLimiter(key).Wait(ctx)
}

// Stats returns per-key request counters
func (rl *LocalLimiter) Stats() map[string]map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := make(map[string]map[string]interface{}, len(rl.limiters))
	for key, kl := range rl.limiters {
		stats[key] = map[string]interface{}{
			"requests":  kl.requests,
			"last_seen": kl.lastSeen,
			"limit":     float64(kl.limiter.Limit()),
			"burst":     kl.limiter.Burst(),
		}
	}
	return stats
}

// Close stops the cleanup routine
func (rl *LocalLimiter) Close() error {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
	return nil
}

func (rl *LocalLimiter) getKeyLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key = strings.ToLower(key)
	kl, exists := rl.limiters[key]
	if !exists {
		rps := rate.Limit(float64(rl.perMinute) / 60.0)
		kl = &keyLimiter{limiter: rate.NewLimiter(rps, rl.burst)}
		rl.limiters[key] = kl

		rl.logger.Debug("Created new rate limiter", map[string]interface{}{
			"key":   key,
			"rate":  float64(rps),
			"burst": rl.burst,
		})
	}

	kl.requests++
	kl.lastSeen = time.Now()
	return kl.limiter
}

func (rl *LocalLimiter) cleanupRoutine() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			rl.cleanupTicker.Stop()
			return
		}
	}
}

// cleanup removes limiters idle for more than ten minutes
func (rl *LocalLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	removed := 0
	for key, kl := range rl.limiters {
		if kl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Info("Cleaned up unused rate limiters", map[string]interface{}{"removed_count": removed})
	}
}
