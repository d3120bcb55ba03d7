// Package llm talks to the chat model that writes the answers.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/tradeidea/internal/config"
)

// LLM completes a prompt.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// New builds the LLM selected by cfg.Provider.
func New(cfg config.LLMConfig, apiKey string) (LLM, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(OpenAIConfig{
			APIKey:      apiKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
			Temperature: cfg.Temperature,
		})
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
