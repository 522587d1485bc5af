package ai

import (
	"context"
	"fmt"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
	"telegram-ai-proxy/internal/infra/metrics"
)

// Compile-time check
var _ adapter.CompletionAdapter = (*limitedAI)(nil)

type limitedAI struct {
	inner adapter.CompletionAdapter
	sem   chan struct{}
}

// NewLimitedAI bounds the number of concurrent provider calls. Waiting for a
// slot honours ctx; a cancelled wait is a completion failure.
func NewLimitedAI(inner adapter.CompletionAdapter, maxConcurrent int) adapter.CompletionAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for a free slot: %w", domain.ErrCompletionFailure, ctx.Err())
	}
}

func (l *limitedAI) release() { <-l.sem }

func (l *limitedAI) Provider() string { return l.inner.Provider() }

func (l *limitedAI) Complete(ctx context.Context, modelName string, messages []model.Message) (string, error) {
	text, _, err := l.CompleteWithUsage(ctx, modelName, messages)
	return text, err
}

func (l *limitedAI) CompleteWithUsage(ctx context.Context, modelName string, messages []model.Message) (string, adapter.Usage, error) {
	if err := l.acquire(ctx); err != nil {
		return "", adapter.Usage{}, err
	}
	defer l.release()
	metrics.IncAIInflight()
	defer metrics.DecAIInflight()
	return l.inner.CompleteWithUsage(ctx, modelName, messages)
}

func (l *limitedAI) CountTokens(modelName string, messages []model.Message) int {
	return l.inner.CountTokens(modelName, messages)
}
