package application

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-ai-proxy/internal/domain/ports/adapter"
	"telegram-ai-proxy/internal/usecase"
)

// CallbackVerify is the callback data carried by the Verify button.
const CallbackVerify = "verify"

// Response is what the transport sends back. An empty Text sends nothing.
type Response struct {
	Text    string
	Buttons [][]adapter.InlineButton
}

func (r Response) Empty() bool { return r.Text == "" }

type FacadeOptions struct {
	ChannelURL string
	HistoryCap int
	Stateless  bool
}

// BotFacade composes the gate and the orchestrator into bot-level replies.
// Access is nil when the gate is disabled.
type BotFacade struct {
	Access AccessUseCaseIface
	Chat   ChatUseCaseIface
	T      Translator
	opts   FacadeOptions
	log    *zerolog.Logger
}

func NewBotFacade(access AccessUseCaseIface, chat ChatUseCaseIface, t Translator, opts FacadeOptions, logger *zerolog.Logger) *BotFacade {
	l := logger.With().Str("component", "facade").Logger()
	return &BotFacade{Access: access, Chat: chat, T: t, opts: opts, log: &l}
}

func (b *BotFacade) gated() bool { return b.Access != nil }

func (b *BotFacade) locked() Response {
	return Response{Text: b.T.T("locked"), Buttons: b.lockButtons()}
}

func (b *BotFacade) lockButtons() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: b.T.T("button_join"), URL: b.opts.ChannelURL}},
		{{Text: b.T.T("button_verify"), Data: CallbackVerify}},
	}
}

// HandleStart returns the welcome text, or in the gated variant either a
// welcome back or the locked prompt with Join and Verify buttons.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64) Response {
	if !b.gated() {
		return Response{Text: b.T.T("welcome")}
	}
	if !b.Access.Check(ctx, tgID).IsMember() {
		return b.locked()
	}
	return Response{Text: b.T.T("welcome_back")}
}

func (b *BotFacade) HandleHelp(ctx context.Context, tgID int64) Response {
	if b.gated() && !b.Access.Check(ctx, tgID).IsMember() {
		return b.locked()
	}
	if b.opts.Stateless {
		return Response{Text: b.T.T("help_stateless")}
	}
	return Response{Text: b.T.T("help", b.opts.HistoryCap)}
}

// HandleVerify re-runs the membership check for the Verify button. The
// transport edits the originating message with the result.
func (b *BotFacade) HandleVerify(ctx context.Context, tgID int64) Response {
	if !b.gated() || b.Access.Check(ctx, tgID).IsMember() {
		return Response{Text: b.T.T("verified")}
	}
	return Response{Text: b.T.T("not_verified"), Buttons: b.lockButtons()}
}

func (b *BotFacade) HandleText(ctx context.Context, tgID, chatID int64, text string) Response {
	out := b.Chat.HandleMessage(ctx, tgID, chatID, text)
	switch out.Kind {
	case usecase.ChatReply:
		return Response{Text: out.Reply}
	case usecase.ChatDenied:
		return b.locked()
	case usecase.ChatFailure:
		return Response{Text: b.T.T("fallback_error")}
	default:
		return Response{}
	}
}

func (b *BotFacade) HandleReset(ctx context.Context, tgID int64) Response {
	if b.gated() && !b.Access.Check(ctx, tgID).IsMember() {
		return b.locked()
	}
	if err := b.Chat.Reset(ctx, tgID); err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("reset history")
		return Response{Text: b.T.T("fallback_error")}
	}
	return Response{Text: b.T.T("reset_done")}
}

// HandleBusy is the reply for an update the transport could not queue. It
// skips the gate so the polling loop never waits on a lookup.
func (b *BotFacade) HandleBusy(ctx context.Context) Response {
	return Response{Text: b.T.T("fallback_error")}
}
