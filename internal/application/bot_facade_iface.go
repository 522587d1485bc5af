package application

import (
	"context"

	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/usecase"
)

// ---- small interfaces to decouple the facade from concrete usecase structs ----

type AccessUseCaseIface interface {
	Check(ctx context.Context, userID int64) model.MembershipResult
}

type ChatUseCaseIface interface {
	HandleMessage(ctx context.Context, userID, chatID int64, text string) usecase.ChatOutcome
	Reset(ctx context.Context, userID int64) error
}

type Translator interface {
	T(key string, args ...interface{}) string
}
