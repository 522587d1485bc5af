package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes maps command names (without the slash) to handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start": r.handleStartCommand,
		"help":  r.handleHelpCommand,
		"reset": r.handleResetCommand,
	}
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.respond(ctx, message.Chat.ID, r.facade.HandleStart(ctx, message.From.ID))
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.respond(ctx, message.Chat.ID, r.facade.HandleHelp(ctx, message.From.ID))
}

func (r *RealTelegramBotAdapter) handleResetCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.respond(ctx, message.Chat.ID, r.facade.HandleReset(ctx, message.From.ID))
}

// handleTextMessage forwards freeform text to the conversation flow.
func (r *RealTelegramBotAdapter) handleTextMessage(ctx context.Context, message *tgbotapi.Message) error {
	resp := r.facade.HandleText(ctx, message.From.ID, message.Chat.ID, message.Text)
	return r.respond(ctx, message.Chat.ID, resp)
}
