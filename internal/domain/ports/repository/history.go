package repository

import (
	"context"

	"telegram-ai-proxy/internal/domain/model"
)

// HistoryRepository keeps one bounded conversation per user.
//
// After every append the buffer is capped: when it holds more than the
// configured number of messages it is replaced by its first element followed
// by the most recent cap-1 elements. Implementations must be safe for
// concurrent use.
type HistoryRepository interface {
	// EnsureSeeded creates a history holding only the system prompt when the
	// user has none. It is a no-op otherwise.
	EnsureSeeded(ctx context.Context, userID int64, systemPrompt string) error
	AppendUser(ctx context.Context, userID int64, text string) error
	AppendAssistant(ctx context.Context, userID int64, text string) error
	// Snapshot returns a copy of the user's current history.
	Snapshot(ctx context.Context, userID int64) ([]model.Message, error)
	// Reset drops the user's history; the next EnsureSeeded starts over.
	Reset(ctx context.Context, userID int64) error
	Len(ctx context.Context, userID int64) int
	// Stats returns the number of messages per known user.
	Stats(ctx context.Context) map[int64]int
}
