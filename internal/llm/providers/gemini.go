package providers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/genai"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/resilience"
)

// genai renders API failures as "Error 429, Message: ..."
var geminiStatusRegex = regexp.MustCompile(`Error (\d{3}),`)

// GeminiProvider implements the LLM provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	config *config.Config
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(ctx context.Context, cfg *config.Config) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.LLM.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.LLM.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.LLM.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: cfg}, nil
}

// Generate sends the prompt as a single user turn
func (gp *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	temperature := gp.config.LLM.Temperature
	result, err := gp.client.Models.GenerateContent(ctx, gp.model(), contents, &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(gp.config.LLM.MaxTokens),
	})
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := result.Text()
	if text == "" {
		return "", resilience.Permanent(fmt.Errorf("gemini: %w", ErrEmptyReply))
	}

	return text, nil
}

// IsHealthy checks that the configured model is reachable
func (gp *GeminiProvider) IsHealthy(ctx context.Context) error {
	if gp.config.LLM.APIKey == "" {
		return fmt.Errorf("Gemini API key not configured - set LLM_API_KEY environment variable")
	}

	if _, err := gp.client.Models.Get(ctx, gp.model(), nil); err != nil {
		return fmt.Errorf("Gemini API health check failed: %w", classifyGeminiError(err))
	}
	return nil
}

// GetProviderName returns the name of the LLM provider
func (gp *GeminiProvider) GetProviderName() string {
	return "gemini"
}

func (gp *GeminiProvider) model() string {
	if gp.config.LLM.Model == "" || gp.config.LLM.Model == config.Default().LLM.Model {
		return "gemini-2.5-flash"
	}
	return gp.config.LLM.Model
}

func classifyGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("failed to call Gemini API: %w", resilience.NewStatusError("gemini", apiErr.Code, apiErr.Message))
	}

	if m := geminiStatusRegex.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return fmt.Errorf("failed to call Gemini API: %w", resilience.NewStatusError("gemini", code, ""))
		}
	}

	return fmt.Errorf("failed to call Gemini API: %w", err)
}
