package llm

import (
	"context"
)

// Generator is the generative-text capability: a prompt in, free-form text out.
// Callers must treat the returned text as untrusted.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMProvider is a concrete model backend
type LLMProvider interface {
	Generator

	// IsHealthy checks if the LLM provider is healthy and available
	IsHealthy(ctx context.Context) error

	// GetProviderName returns the name of the LLM provider
	GetProviderName() string
}
