package resilience

import (
	"strings"
	"sync"
	"time"

	"fitcheck-ingest/internal/logging"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns string representation of CircuitState
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type circuitBreaker struct {
	failureCount int
	lastFailTime time.Time
	state        CircuitState
	probing      bool
}

// Breakers keeps one circuit breaker per key (target host or "llm")
type Breakers struct {
	maxFailures   int
	resetTimeout  time.Duration
	idleTimeout   time.Duration
	breakers      map[string]*circuitBreaker
	now           func() time.Time
	logger        logging.Logger
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
	mu            sync.Mutex
}

// NewBreakers opens a key's circuit after maxFailures consecutive failures
// and lets one trial call through once resetTimeout has elapsed.
// Keys without a failure for ten reset periods are forgotten.
func NewBreakers(maxFailures int, resetTimeout time.Duration) *Breakers {
	if maxFailures < 1 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	b := &Breakers{
		maxFailures:   maxFailures,
		resetTimeout:  resetTimeout,
		idleTimeout:   10 * resetTimeout,
		breakers:      make(map[string]*circuitBreaker),
		now:           time.Now,
		logger:        logging.GetGlobalLogger().WithField("component", "circuit_breaker"),
		cleanupTicker: time.NewTicker(resetTimeout),
		stopCleanup:   make(chan struct{}),
	}

	go b.cleanupRoutine()

	return b
}

// Allow reports whether a call for key may proceed
func (b *Breakers) Allow(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key = strings.ToLower(key)
	cb, exists := b.breakers[key]
	if !exists {
		return true
	}

	switch cb.state {
	case CircuitOpen:
		if b.now().Sub(cb.lastFailTime) > b.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.probing = true
			b.logger.Info("Circuit breaker transitioned to half-open", map[string]interface{}{"key": key})
			return true
		}
		return false
	case CircuitHalfOpen:
		// one trial at a time
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

// Release ends a half-open trial whose outcome says nothing about the upstream
func (b *Breakers) Release(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, exists := b.breakers[strings.ToLower(key)]; exists {
		cb.probing = false
	}
}

// RecordSuccess closes the breaker for key
func (b *Breakers) RecordSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key = strings.ToLower(key)
	cb, exists := b.breakers[key]
	if !exists {
		return
	}

	if cb.state == CircuitHalfOpen {
		b.logger.Info("Circuit breaker closed after successful request", map[string]interface{}{"key": key})
	}
	delete(b.breakers, key)
}

// RecordFailure counts a failure for key and opens the breaker at the threshold
func (b *Breakers) RecordFailure(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key = strings.ToLower(key)
	cb, exists := b.breakers[key]
	if !exists {
		cb = &circuitBreaker{state: CircuitClosed}
		b.breakers[key] = cb
	}

	cb.failureCount++
	cb.lastFailTime = b.now()
	cb.probing = false

	if cb.state == CircuitHalfOpen || (cb.state == CircuitClosed && cb.failureCount >= b.maxFailures) {
		cb.state = CircuitOpen
		fields := map[string]interface{}{
			"key":      key,
			"failures": cb.failureCount,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		b.logger.Warn("Circuit breaker opened due to failures", fields)
	}
}

// State returns the current state for key
func (b *Breakers) State(key string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, exists := b.breakers[strings.ToLower(key)]; exists {
		return cb.state
	}
	return CircuitClosed
}

// Stats returns breaker statistics for every key with recorded failures
func (b *Breakers) Stats() map[string]map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := make(map[string]map[string]interface{}, len(b.breakers))
	for key, cb := range b.breakers {
		stats[key] = map[string]interface{}{
			"circuit_state":  cb.state.String(),
			"failure_count":  cb.failureCount,
			"max_failures":   b.maxFailures,
			"last_fail_time": cb.lastFailTime,
		}
	}
	return stats
}

// Len returns the number of keys currently tracked
func (b *Breakers) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.breakers)
}

// Close stops the cleanup routine
func (b *Breakers) Close() error {
	b.stopOnce.Do(func() { close(b.stopCleanup) })
	return nil
}

func (b *Breakers) cleanupRoutine() {
	for {
		select {
		case <-b.cleanupTicker.C:
			b.cleanup()
		case <-b.stopCleanup:
			b.cleanupTicker.Stop()
			return
		}
	}
}

// cleanup forgets keys whose last failure is older than the idle timeout
func (b *Breakers) cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.idleTimeout)
	removed := 0
	for key, cb := range b.breakers {
		if cb.lastFailTime.Before(cutoff) && !cb.probing {
			delete(b.breakers, key)
			removed++
		}
	}

	if removed > 0 {
		b.logger.Info("Cleaned up idle circuit breakers", map[string]interface{}{"removed_count": removed})
	}
}
