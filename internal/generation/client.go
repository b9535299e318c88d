package generation

import (
	"context"
	"fmt"

	"phytovet/internal/config"
)

// LLMClient defines the interface for text-completion providers.
type LLMClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Supported providers.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// NewLLMClient builds the completion client for the configured provider.
func NewLLMClient(cfg config.GenerationConfig) (LLMClient, error) {
	switch cfg.Provider {
	case ProviderGroq:
		return NewGroqClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}

// providerDisplayName returns the provider name as shown in user-facing
// messages.
func providerDisplayName(provider string) string {
	switch provider {
	case ProviderGemini:
		return "Gemini"
	default:
		return "Groq"
	}
}
