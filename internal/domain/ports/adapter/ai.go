package adapter

import (
	"context"

	"telegram-ai-proxy/internal/domain/model"
)

// Usage for a single completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionAdapter is the port for a hosted chat-completion provider.
//
// Every failure (transport, auth, rate limit, timeout, malformed response)
// is returned wrapped in domain.ErrCompletionFailure. Implementations make a
// single attempt per call.
type CompletionAdapter interface {
	// Provider returns a short provider name used in logs and metrics.
	Provider() string

	// Complete returns the text of the top choice.
	Complete(ctx context.Context, model string, messages []model.Message) (string, error)

	// CompleteWithUsage returns the text plus usage as reported by the provider.
	CompleteWithUsage(ctx context.Context, model string, messages []model.Message) (string, Usage, error)

	// CountTokens estimates prompt tokens for messages (best-effort).
	CountTokens(model string, messages []model.Message) int
}
