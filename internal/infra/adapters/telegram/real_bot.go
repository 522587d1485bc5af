package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-ai-proxy/internal/application"
	"telegram-ai-proxy/internal/config"
	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
	"telegram-ai-proxy/internal/infra/logging"
	"telegram-ai-proxy/internal/infra/metrics"
	"telegram-ai-proxy/internal/infra/worker"
)

var (
	_ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)
	_ adapter.MembershipLookup   = (*RealTelegramBotAdapter)(nil)
)

// botAPI is the subset of *tgbotapi.BotAPI the adapter calls.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	updateSource
}

// Facade is the bot-level surface the routes delegate to.
type Facade interface {
	HandleStart(ctx context.Context, tgID int64) application.Response
	HandleHelp(ctx context.Context, tgID int64) application.Response
	HandleVerify(ctx context.Context, tgID int64) application.Response
	HandleText(ctx context.Context, tgID, chatID int64, text string) application.Response
	HandleReset(ctx context.Context, tgID int64) application.Response
	HandleBusy(ctx context.Context) application.Response
}

// updateSource is the long-polling half of the client.
type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealTelegramBotAdapter long-polls Telegram and delegates updates to the facade.
// The facade is attached after construction because the chat usecase needs
// the adapter for typing indicators.
type RealTelegramBotAdapter struct {
	bot    botAPI
	poller updateSource
	cfg    *config.BotConfig
	facade Facade
	pool   *worker.Pool
	log    *zerolog.Logger
}

// NewRealTelegramBotAdapter logs in twice: one client for requests, bounded a
// little above lookupTimeout so abandoned membership calls do not pile up,
// and one for getUpdates, which must outlive the long-poll window.
func NewRealTelegramBotAdapter(cfg *config.BotConfig, lookupTimeout time.Duration, pool *worker.Pool, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, &http.Client{Timeout: requestTimeout(lookupTimeout)})
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	poller, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, &http.Client{Timeout: pollTimeout(cfg.PollTimeout)})
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	r := newAdapter(bot, cfg, pool, logger)
	r.poller = poller
	r.log.Info().Str("bot", bot.Self.UserName).Msg("authorized on telegram")
	return r, nil
}

func requestTimeout(lookup time.Duration) time.Duration {
	if lookup <= 0 {
		lookup = 10 * time.Second
	}
	return lookup + 5*time.Second
}

func pollTimeout(seconds int) time.Duration {
	return time.Duration(seconds)*time.Second + 10*time.Second
}

func newAdapter(bot botAPI, cfg *config.BotConfig, pool *worker.Pool, logger *zerolog.Logger) *RealTelegramBotAdapter {
	l := logger.With().Str("component", "telegram").Logger()
	return &RealTelegramBotAdapter{bot: bot, poller: bot, cfg: cfg, pool: pool, log: &l}
}

func (r *RealTelegramBotAdapter) SetFacade(f Facade) { r.facade = f }

// StartPolling blocks until ctx is cancelled or the update channel closes.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade is nil")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.cfg.PollTimeout
	updates := r.poller.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			r.poller.StopReceivingUpdates()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.dispatch(ctx, up)
		}
	}
}

// dispatch hands the update to the shard owning its user so that one user's
// updates are handled in arrival order.
func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, up tgbotapi.Update) {
	key := updateUserID(up)
	if r.pool == nil {
		if err := r.handleUpdate(ctx, up); err != nil {
			r.log.Warn().Err(err).Int64("tg_id", key).Msg("update failed")
		}
		return
	}
	err := r.pool.Submit(key, func(ctx context.Context) error { return r.handleUpdate(ctx, up) })
	if err == nil {
		return
	}
	r.log.Warn().Err(err).Int64("tg_id", key).Int("update_id", up.UpdateID).Msg("update dropped")
	if errors.Is(err, domain.ErrQueueFull) {
		r.rejectBusy(ctx, up)
	}
}

// rejectBusy tells the user an update was not queued, using the same
// fallback text as a failed completion.
func (r *RealTelegramBotAdapter) rejectBusy(ctx context.Context, up tgbotapi.Update) {
	resp := r.facade.HandleBusy(ctx)
	if q := up.CallbackQuery; q != nil {
		if _, err := r.bot.Request(tgbotapi.NewCallback(q.ID, resp.Text)); err != nil {
			r.log.Debug().Err(err).Msg("answer callback")
		}
		return
	}
	msg := up.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if err := r.respond(ctx, msg.Chat.ID, resp); err != nil {
		r.log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("busy reply failed")
	}
}

func updateUserID(up tgbotapi.Update) int64 {
	switch {
	case up.CallbackQuery != nil && up.CallbackQuery.From != nil:
		return up.CallbackQuery.From.ID
	case up.Message != nil && up.Message.From != nil:
		return up.Message.From.ID
	case up.Message != nil && up.Message.Chat != nil:
		return up.Message.Chat.ID
	}
	return 0
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, msg.From.ID)

	if msg.IsCommand() {
		cmd := msg.Command()
		if h, ok := r.commandRoutes()[cmd]; ok {
			metrics.IncTelegramCommand("/" + cmd)
			return h(ctx, msg)
		}
		metrics.IncTelegramCommand("unknown")
		logging.With(ctx, r.log).Debug().Str("command", cmd).Msg("unknown command")
		return nil
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	metrics.IncTelegramCommand("message")
	return r.handleTextMessage(ctx, msg)
}

// respond sends resp to chatID, with buttons when it has any.
func (r *RealTelegramBotAdapter) respond(ctx context.Context, chatID int64, resp application.Response) error {
	if resp.Empty() {
		return nil
	}
	if len(resp.Buttons) > 0 {
		return r.SendButtons(ctx, chatID, resp.Text, resp.Buttons)
	}
	return r.SendMessage(ctx, chatID, resp.Text)
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	return r.sendMarkdown(ctx, &msg.ParseMode, &msg)
}

// SendButtons sends a message with inline buttons using tgbotapi.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup, ok := inlineKeyboard(rows); ok {
		msg.ReplyMarkup = markup
	}
	return r.sendMarkdown(ctx, &msg.ParseMode, &msg)
}

// EditMessage replaces the text (and keyboard) of a message the bot sent.
func (r *RealTelegramBotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string, rows [][]adapter.InlineButton) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if markup, ok := inlineKeyboard(rows); ok {
		edit.ReplyMarkup = &markup
	}
	err := r.sendMarkdown(ctx, &edit.ParseMode, &edit)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (r *RealTelegramBotAdapter) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

// sendMarkdown sends c with Markdown parse mode and retries once as plain
// text when Telegram cannot parse the entities. parseMode must point into c.
func (r *RealTelegramBotAdapter) sendMarkdown(ctx context.Context, parseMode *string, c tgbotapi.Chattable) error {
	// Support early cancellation
	if err := ctx.Err(); err != nil {
		return err
	}
	*parseMode = tgbotapi.ModeMarkdown
	_, err := r.bot.Send(c)
	if err == nil {
		return nil
	}
	if !isParseError(err) {
		metrics.IncSendError("api")
		return err
	}
	metrics.IncSendError("markdown")
	logging.With(ctx, r.log).Debug().Err(err).Msg("markdown rejected; resending as plain text")
	*parseMode = ""
	if _, err = r.bot.Send(c); err != nil {
		metrics.IncSendError("api")
	}
	return err
}

func isParseError(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return strings.Contains(tgErr.Message, "can't parse entities")
	}
	return strings.Contains(err.Error(), "can't parse entities")
}

func inlineKeyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}

// GetMemberRole asks Telegram for the user's status in channel. channel is a
// numeric chat id (e.g. -100123) or an @username. The bot must be able to see
// the channel's members (usually as an administrator).
func (r *RealTelegramBotAdapter) GetMemberRole(ctx context.Context, channel string, userID int64) (model.MemberRole, error) {
	q := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID}}
	channel = strings.TrimSpace(channel)
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		q.ChatID = id
	} else {
		if !strings.HasPrefix(channel, "@") {
			channel = "@" + channel
		}
		q.SuperGroupUsername = channel
	}

	type result struct {
		member tgbotapi.ChatMember
		err    error
	}
	// the client has no per-call context, so the wait is bounded here
	done := make(chan result, 1)
	go func() {
		m, err := r.bot.GetChatMember(q)
		done <- result{m, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		return model.MemberRole(res.member.Status), nil
	}
}
