package ai

import (
	"context"
	"fmt"
	"time"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
)

var _ adapter.CompletionAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.CompletionAdapter for local/dev runs
// without a provider account. It echoes the last user message.
type NoopAIAdapter struct {
	delay time.Duration
}

// NewNoopAIAdapter constructs the noop adapter.
func NewNoopAIAdapter(delay time.Duration) *NoopAIAdapter {
	return &NoopAIAdapter{delay: delay}
}

func (a *NoopAIAdapter) Provider() string { return "noop" }

func (a *NoopAIAdapter) Complete(ctx context.Context, modelName string, messages []model.Message) (string, error) {
	text, _, err := a.CompleteWithUsage(ctx, modelName, messages)
	return text, err
}

func (a *NoopAIAdapter) CompleteWithUsage(ctx context.Context, modelName string, messages []model.Message) (string, adapter.Usage, error) {
	// Simulate processing and respect ctx
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return "", adapter.Usage{}, fmt.Errorf("%w: %w", domain.ErrCompletionFailure, ctx.Err())
	}
	if len(messages) == 0 {
		return "", adapter.Usage{}, fmt.Errorf("%w: no messages", domain.ErrCompletionFailure)
	}
	last := messages[len(messages)-1]
	reply := fmt.Sprintf("echo (%d messages in context): %s", len(messages), last.Content)
	return reply, adapter.Usage{PromptTokens: CountTokens(modelName, messages)}, nil
}

func (a *NoopAIAdapter) CountTokens(modelName string, messages []model.Message) int {
	return CountTokens(modelName, messages)
}
