package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TEST_READER_KEY", "reader-secret")

	configData := `
server:
  port: 9090
ingest:
  min_text_length: 80
  max_page_chars: 12000
resilience:
  max_attempts: 1
  render_timeout: 10s
llm:
  provider: "ollama"
  model: "llama3"
  base_url: "http://localhost:11434"
renderer:
  engine: "reader"
  reader:
    base_url: "http://reader.internal"
    api_key: "${TEST_READER_KEY}"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 80, cfg.Ingest.MinTextLength)
	assert.Equal(t, 12000, cfg.Ingest.MaxPageChars)
	assert.Equal(t, 1, cfg.Resilience.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Resilience.RenderTimeout)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "http://reader.internal", cfg.Renderer.Reader.BaseURL)
	assert.Equal(t, "reader-secret", cfg.Renderer.Reader.APIKey)

	// untouched keys keep their defaults
	assert.Equal(t, 60*time.Second, cfg.Resilience.LLMTimeout)
	assert.Equal(t, "15M", cfg.Server.MaxBodySize)
	assert.False(t, cfg.Resilience.BreakerEnabled)
	assert.Equal(t, 30*time.Second, cfg.LLM.HealthInterval)
}

func TestMaxBodyBytes(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(15_000_000), cfg.MaxBodyBytes())

	cfg.Server.MaxBodySize = "1K"
	assert.Equal(t, int64(1000), cfg.MaxBodyBytes())

	cfg.Server.MaxBodySize = "lots"
	assert.Zero(t, cfg.MaxBodyBytes())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Ingest.MinTextLength)
	assert.Equal(t, 20000, cfg.Ingest.MaxPageChars)
	assert.Equal(t, EngineReader, cfg.Renderer.Engine)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unterminated"), 0644))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("RENDER_ENGINE", "Firecrawl")
	t.Setenv("MAX_PAGE_CHARS", "5000")
	t.Setenv("RETRY_MAX_ATTEMPTS", "4")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("CIRCUIT_BREAKER_ENABLED", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, EngineFirecrawl, cfg.Renderer.Engine)
	assert.Equal(t, 5000, cfg.Ingest.MaxPageChars)
	assert.Equal(t, 4, cfg.Resilience.MaxAttempts)
	assert.Equal(t, "redis://cache:6379/1", cfg.RateLimit.RedisURL)
	assert.True(t, cfg.Resilience.BreakerEnabled)
	assert.Equal(t, "0.0.0.0:7070", cfg.Address())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(c *Config)
		expectedErrs int
	}{
		{
			name: "valid config",
			mutate: func(c *Config) {
				c.LLM.APIKey = "key"
			},
			expectedErrs: 0,
		},
		{
			name:         "claude without api key",
			mutate:       func(c *Config) {},
			expectedErrs: 1,
		},
		{
			name: "firecrawl without api key and bad attempts",
			mutate: func(c *Config) {
				c.LLM.APIKey = "key"
				c.Renderer.Engine = EngineFirecrawl
				c.Resilience.MaxAttempts = 0
			},
			expectedErrs: 2,
		},
		{
			name: "unknown provider and engine",
			mutate: func(c *Config) {
				c.LLM.Provider = "gpt"
				c.Renderer.Engine = "curl"
				c.Ingest.MaxPageChars = 0
			},
			expectedErrs: 3,
		},
		{
			name: "enabled breaker without threshold and bad body size",
			mutate: func(c *Config) {
				c.LLM.APIKey = "key"
				c.Resilience.BreakerEnabled = true
				c.Resilience.BreakerMaxFailures = 0
				c.Server.MaxBodySize = "huge"
			},
			expectedErrs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Len(t, cfg.Validate(), tt.expectedErrs)
		})
	}
}
