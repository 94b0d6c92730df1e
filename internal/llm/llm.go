// Package llm provides the text-generation capability behind a single
// Generator interface. The backend variant is selected once at startup by
// configuration; callers never branch on the provider type.
package llm

import (
	"context"
	"fmt"
)

// Options controls a single generation call.
type Options struct {
	MaxTokens int
	Stop      []string
}

// Generator defines the interface for text completion backends.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Providers supported by New.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ProviderConfig selects and configures a generation backend.
type ProviderConfig struct {
	Provider string
	Model    string

	// OpenAI
	APIKey string

	// Ollama
	BaseURL string
}

// New constructs the Generator variant named by cfg.Provider.
func New(cfg ProviderConfig) (Generator, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model), nil
	case ProviderOllama:
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
