// Package ai talks to the hosted vision models that enumerate fridge items.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fridgesight/internal/config"
)

// Client sends one image plus a prompt and returns the model's raw text reply.
type Client interface {
	Infer(ctx context.Context, imageBase64, prompt string) (string, error)
}

// Options carries generation parameters shared by every provider.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

const requestTimeout = 60 * time.Second

// NewClient builds the client for the configured provider.
func NewClient(cfg *config.Config) (Client, error) {
	opts := Options{
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	}

	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg.AnthropicAPIKey, "", opts), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, opts, &http.Client{Timeout: requestTimeout}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
