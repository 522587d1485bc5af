package adapter

import (
	"context"

	"telegram-ai-proxy/internal/domain/model"
)

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// MembershipLookup resolves the role of a user inside a channel.
// channel is either a numeric chat id or an @username.
type MembershipLookup interface {
	GetMemberRole(ctx context.Context, channel string, userID int64) (model.MemberRole, error)
}

// ActivityNotifier shows an ephemeral "typing" indicator in a chat.
type ActivityNotifier interface {
	SendTyping(ctx context.Context, chatID int64) error
}

type TelegramBotAdapter interface {
	ActivityNotifier
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, rows [][]InlineButton) error
}
