package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/llm/providers"
	"fitcheck-ingest/internal/resilience"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) IsHealthy(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProvider) GetProviderName() string {
	return "mock"
}

func TestManager_GenerateRetriesTransientFailures(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Generate", mock.Anything, "prompt").Return("", resilience.NewStatusError("mock", http.StatusServiceUnavailable, "")).Once()
	provider.On("Generate", mock.Anything, "prompt").Return("reply", nil).Once()

	guard := resilience.NewGuard("llm", resilience.Policy{MaxAttempts: 3}, nil, nil)
	manager := NewManagerWithProvider(provider, guard)

	out, err := manager.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "reply", out)
	assert.True(t, manager.IsHealthy())
	provider.AssertNumberOfCalls(t, "Generate", 2)
}

func TestManager_GeneratePermanentFailureMarksUnhealthy(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Generate", mock.Anything, "prompt").Return("", resilience.NewStatusError("mock", http.StatusUnauthorized, ""))

	manager := NewManagerWithProvider(provider, resilience.NewGuard("llm", resilience.Policy{MaxAttempts: 3}, nil, nil))

	_, err := manager.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
	assert.False(t, manager.IsHealthy())
	provider.AssertNumberOfCalls(t, "Generate", 1)
}

func TestManager_GuardRejectionsKeepHealth(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Generate", mock.Anything, "prompt").Return("", resilience.NewStatusError("mock", http.StatusServiceUnavailable, "")).Once()

	breakers := resilience.NewBreakers(1, time.Minute)
	guard := resilience.NewGuard("llm", resilience.NoRetry, nil, breakers)
	manager := NewManagerWithProvider(provider, guard)
	defer manager.Stop()

	_, err := manager.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, resilience.CircuitOpen, breakers.State("llm"))

	_, err = manager.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.True(t, manager.IsHealthy())
	provider.AssertNumberOfCalls(t, "Generate", 1)
}

func TestManager_RecheckIsThrottled(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Generate", mock.Anything, "prompt").Return("", resilience.NewStatusError("mock", http.StatusUnauthorized, "")).Once()
	provider.On("IsHealthy", mock.Anything).Return(errors.New("still down")).Once()
	provider.On("IsHealthy", mock.Anything).Return(nil).Once()

	manager := NewManagerWithProvider(provider, nil)
	now := time.Now()
	manager.now = func() time.Time { return now }

	_, err := manager.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.False(t, manager.IsHealthy())

	assert.False(t, manager.Recheck(context.Background()))
	assert.False(t, manager.Recheck(context.Background()), "a second check inside the interval is skipped")
	provider.AssertNumberOfCalls(t, "IsHealthy", 1)

	now = now.Add(defaultHealthInterval + time.Second)
	assert.True(t, manager.Recheck(context.Background()))
	assert.True(t, manager.IsHealthy())
	provider.AssertNumberOfCalls(t, "IsHealthy", 2)

	// healthy providers are not rechecked
	assert.True(t, manager.Recheck(context.Background()))
	provider.AssertNumberOfCalls(t, "IsHealthy", 2)
}

func TestManager_EmptyReplyKeepsHealth(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Generate", mock.Anything, "prompt").Return("", resilience.Permanent(fmt.Errorf("mock: %w", providers.ErrEmptyReply)))

	manager := NewManagerWithProvider(provider, resilience.NewGuard("llm", resilience.Policy{MaxAttempts: 3}, nil, nil))

	_, err := manager.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, providers.ErrEmptyReply)
	assert.True(t, manager.IsHealthy())
	provider.AssertNumberOfCalls(t, "Generate", 1)
}

func TestManager_NotStarted(t *testing.T) {
	manager := NewManager(config.Default(), nil)

	_, err := manager.Generate(context.Background(), "prompt")
	assert.Error(t, err)
	assert.False(t, manager.IsHealthy())
	assert.Equal(t, "none", manager.GetProviderName())
}

func TestManager_CheckHealth(t *testing.T) {
	provider := new(MockProvider)
	provider.On("IsHealthy", mock.Anything).Return(errors.New("down")).Once()
	provider.On("IsHealthy", mock.Anything).Return(nil).Once()

	manager := NewManagerWithProvider(provider, nil)

	assert.Error(t, manager.CheckHealth(context.Background()))
	assert.False(t, manager.IsHealthy())
	assert.NoError(t, manager.CheckHealth(context.Background()))
	assert.True(t, manager.IsHealthy())
	assert.Equal(t, "mock", manager.GetProviderName())
	require.NoError(t, manager.Stop())
}

func TestLLMFactory(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "gpt"

	_, err := NewLLMFactory(cfg).CreateProvider(context.Background())
	assert.Error(t, err)
	assert.ElementsMatch(t, []string{"claude", "gemini", "ollama"}, NewLLMFactory(cfg).GetSupportedProviders())
}
