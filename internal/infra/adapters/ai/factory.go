package ai

import (
	"context"
	"fmt"
	"time"

	"telegram-ai-proxy/internal/config"
	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/ports/adapter"
)

// NewFromConfig builds the configured provider adapter wrapped in the
// concurrency limiter.
func NewFromConfig(ctx context.Context, cfg config.AIConfig) (adapter.CompletionAdapter, error) {
	var (
		inner adapter.CompletionAdapter
		err   error
	)
	switch cfg.Provider {
	case "openai", "":
		inner, err = NewOpenAIAdapter(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
	case "gemini":
		inner, err = NewGeminiAdapter(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case "noop":
		inner = NewNoopAIAdapter(300 * time.Millisecond)
	default:
		return nil, fmt.Errorf("%w: unknown ai provider %q", domain.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%s adapter: %w", cfg.Provider, err)
	}
	return NewLimitedAI(inner, cfg.ConcurrentLimit), nil
}
