package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/resilience"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements the LLM provider interface against a local Ollama server
type OllamaProvider struct {
	llm       *ollama.LLM
	config    *config.Config
	serverURL string
}

// NewOllamaProvider creates a new Ollama provider instance
func NewOllamaProvider(cfg *config.Config) (*OllamaProvider, error) {
	serverURL := cfg.LLM.BaseURL
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}

	llm, err := ollama.New(
		ollama.WithModel(cfg.LLM.Model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{llm: llm, config: cfg, serverURL: serverURL}, nil
}

// Generate runs a single-prompt completion
func (op *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := op.llm.GenerateContent(ctx, content,
		llms.WithTemperature(float64(op.config.LLM.Temperature)),
		llms.WithMaxTokens(op.config.LLM.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("failed to call Ollama: %w", err)
	}

	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "", resilience.Permanent(fmt.Errorf("ollama: %w", ErrEmptyReply))
	}

	return response.Choices[0].Content, nil
}

// IsHealthy checks that the Ollama server answers
func (op *OllamaProvider) IsHealthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(op.serverURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama health check failed: %w", resilience.NewStatusError("ollama", resp.StatusCode, ""))
	}
	return nil
}

// GetProviderName returns the name of the LLM provider
func (op *OllamaProvider) GetProviderName() string {
	return "ollama"
}
