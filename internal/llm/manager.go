package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/llm/providers"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/resilience"
)

// guardKey is the single rate-limit and breaker key shared by all model calls
const guardKey = "llm"

const defaultHealthInterval = 30 * time.Second

// Manager manages the LLM provider and its lifecycle.
// It satisfies Generator and applies the model guard to every call.
type Manager struct {
	config   *config.Config
	factory  *LLMFactory
	guard    *resilience.Guard
	provider LLMProvider
	logger   logging.Logger
	mu       sync.RWMutex
	healthy  bool

	healthInterval time.Duration
	lastCheck      time.Time
	now            func() time.Time
}

// NewManager creates a new LLM manager instance
func NewManager(cfg *config.Config, guard *resilience.Guard) *Manager {
	if guard == nil {
		guard = resilience.NewGuard("llm", resilience.LLMPolicy(cfg), nil, nil)
	}
	interval := cfg.LLM.HealthInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &Manager{
		config:         cfg,
		factory:        NewLLMFactory(cfg),
		guard:          guard,
		logger:         logging.GetGlobalLogger().WithField("component", "llm_manager"),
		healthInterval: interval,
		now:            time.Now,
	}
}

// NewManagerWithProvider creates a started manager around an existing provider
func NewManagerWithProvider(provider LLMProvider, guard *resilience.Guard) *Manager {
	if guard == nil {
		guard = resilience.NewGuard("llm", resilience.NoRetry, nil, nil)
	}
	return &Manager{
		guard:          guard,
		provider:       provider,
		healthy:        true,
		logger:         logging.GetGlobalLogger().WithField("component", "llm_manager"),
		healthInterval: defaultHealthInterval,
		now:            time.Now,
	}
}

// Start creates the provider and runs an initial health check.
// A failed check is logged, not returned, so the server can still start.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting LLM manager", map[string]interface{}{"provider": m.config.LLM.Provider})

	provider, err := m.factory.CreateProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	m.provider = provider

	healthCtx, cancel := context.WithTimeout(ctx, m.config.Resilience.LLMTimeout)
	defer cancel()

	m.lastCheck = m.now()
	if err := m.provider.IsHealthy(healthCtx); err != nil {
		m.logger.Warn("LLM provider health check failed", map[string]interface{}{
			"provider": provider.GetProviderName(),
			"error":    err.Error(),
		})
		m.healthy = false
	} else {
		m.healthy = true
		m.logger.Info("LLM manager started successfully", map[string]interface{}{"provider": provider.GetProviderName()})
	}

	return nil
}

// Stop shuts down the LLM manager
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping LLM manager")
	m.provider = nil
	m.healthy = false
	return m.guard.Close()
}

// Generate sends prompt to the provider under the model guard
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return "", fmt.Errorf("LLM manager not started or provider not available")
	}

	start := time.Now()
	var reply string
	err := m.guard.Do(ctx, guardKey, func(attemptCtx context.Context) error {
		out, err := provider.Generate(attemptCtx, prompt)
		if err != nil {
			return err
		}
		reply = out
		return nil
	})

	m.recordOutcome(err)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", provider.GetProviderName(), err)
	}

	m.logger.WithContext(ctx).Debug("LLM generation completed", map[string]interface{}{
		"provider":     provider.GetProviderName(),
		"prompt_chars": len(prompt),
		"reply_chars":  len(reply),
		"duration":     time.Since(start).String(),
	})

	return reply, nil
}

// recordOutcome keeps the cached health in step with real traffic.
// Rejections by the guard never reached the provider and leave health unchanged.
func (m *Manager) recordOutcome(err error) {
	if err != nil && (resilience.IsLocalRejection(err) || errors.Is(err, context.Canceled)) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == nil, errors.Is(err, providers.ErrEmptyReply):
		m.healthy = true
	case resilience.IsPermanent(err):
		m.healthy = false
	}
}

// Recheck re-checks an unhealthy provider, at most once per health interval,
// and reports the resulting health
func (m *Manager) Recheck(ctx context.Context) bool {
	m.mu.Lock()
	if m.provider == nil {
		m.mu.Unlock()
		return false
	}
	if m.healthy {
		m.mu.Unlock()
		return true
	}
	if m.now().Sub(m.lastCheck) < m.healthInterval {
		m.mu.Unlock()
		return false
	}
	m.lastCheck = m.now()
	m.mu.Unlock()

	if err := m.CheckHealth(ctx); err != nil {
		m.logger.WithContext(ctx).Warn("LLM provider still unhealthy", map[string]interface{}{"error": err.Error()})
		return false
	}

	m.logger.WithContext(ctx).Info("LLM provider recovered")
	return true
}

// IsHealthy reports the cached health of the provider
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy && m.provider != nil
}

// GetProviderName returns the name of the current LLM provider
func (m *Manager) GetProviderName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider != nil {
		return m.provider.GetProviderName()
	}
	return "none"
}

// CheckHealth performs a live health check on the LLM provider
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return fmt.Errorf("LLM provider not available")
	}

	err := provider.IsHealthy(ctx)

	m.mu.Lock()
	m.healthy = err == nil
	m.mu.Unlock()

	return err
}

// Stats returns circuit breaker statistics for model calls
func (m *Manager) Stats() map[string]map[string]interface{} {
	return m.guard.Stats()
}
