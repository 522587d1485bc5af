package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-ai-proxy/internal/application"
	"telegram-ai-proxy/internal/infra/logging"
	"telegram-ai-proxy/internal/infra/metrics"
)

type cbHandler func(ctx context.Context, query *tgbotapi.CallbackQuery) error

func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		application.CallbackVerify: r.verifyCBRoute,
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}
	// Stop telegram spinner when we return
	defer func() {
		if _, err := r.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			r.log.Debug().Err(err).Msg("answer callback")
		}
	}()

	ctx = logging.WithTgID(ctx, query.From.ID)
	data := strings.TrimSpace(query.Data)
	if fn, ok := r.cbRoutes()[data]; ok {
		metrics.IncTelegramCommand("callback:" + data)
		return fn(ctx, query)
	}
	metrics.IncTelegramCommand("callback:unknown")
	return fmt.Errorf("unknown callback data %q", data)
}

// verifyCBRoute re-checks membership and edits the message carrying the
// button. Without an originating message the result is sent as a new one.
func (r *RealTelegramBotAdapter) verifyCBRoute(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	resp := r.facade.HandleVerify(ctx, query.From.ID)
	if query.Message != nil && query.Message.Chat != nil {
		return r.EditMessage(ctx, query.Message.Chat.ID, query.Message.MessageID, resp.Text, resp.Buttons)
	}
	return r.respond(ctx, query.From.ID, resp)
}
