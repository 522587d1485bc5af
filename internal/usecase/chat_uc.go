package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
	"telegram-ai-proxy/internal/domain/ports/repository"
	"telegram-ai-proxy/internal/infra/logging"
	"telegram-ai-proxy/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

type ChatOutcomeKind int

const (
	// ChatIgnored means nothing is sent back (empty text).
	ChatIgnored ChatOutcomeKind = iota
	ChatReply
	ChatDenied
	ChatFailure
)

func (k ChatOutcomeKind) String() string {
	switch k {
	case ChatReply:
		return "reply"
	case ChatDenied:
		return "denied"
	case ChatFailure:
		return "failure"
	default:
		return "ignored"
	}
}

// ChatOutcome is the result of one inbound text. Reply is set only for ChatReply.
type ChatOutcome struct {
	Kind  ChatOutcomeKind
	Reply string
}

type ChatUseCase interface {
	HandleMessage(ctx context.Context, userID, chatID int64, text string) ChatOutcome
	Reset(ctx context.Context, userID int64) error
}

type ChatOptions struct {
	SystemPrompt string
	Model        string
	Timeout      time.Duration
	// Stateless sends [system, user] on every call and keeps no history.
	Stateless bool
	// Dev logs user text unredacted.
	Dev bool
}

type chatUC struct {
	history repository.HistoryRepository
	ai      adapter.CompletionAdapter
	access  AccessUseCase // nil disables the gate
	typing  adapter.ActivityNotifier
	opts    ChatOptions
	locks   *userLocks
	log     *zerolog.Logger
}

func NewChatUseCase(
	history repository.HistoryRepository,
	ai adapter.CompletionAdapter,
	access AccessUseCase,
	typing adapter.ActivityNotifier,
	opts ChatOptions,
	logger *zerolog.Logger,
) *chatUC {
	l := logger.With().Str("component", "chat").Logger()
	return &chatUC{
		history: history,
		ai:      ai,
		access:  access,
		typing:  typing,
		opts:    opts,
		locks:   newUserLocks(),
		log:     &l,
	}
}

func (c *chatUC) HandleMessage(ctx context.Context, userID, chatID int64, text string) ChatOutcome {
	defer logging.TraceDuration(c.log, "ChatUC.HandleMessage")()
	out := c.handle(ctx, userID, chatID, text)
	metrics.IncChatOutcome(out.Kind.String())
	return out
}

func (c *chatUC) handle(ctx context.Context, userID, chatID int64, text string) ChatOutcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatOutcome{Kind: ChatIgnored}
	}
	l := logging.With(logging.WithTgID(ctx, userID), c.log).With().
		Str("text", logging.Redact(text, c.opts.Dev)).Logger()
	log := &l

	if c.access != nil && !c.access.IsMember(ctx, userID) {
		log.Info().Msg("access denied")
		return ChatOutcome{Kind: ChatDenied}
	}

	if c.opts.Stateless || c.history == nil {
		msgs := []model.Message{model.SystemMessage(c.opts.SystemPrompt), model.UserMessage(text)}
		reply, err := c.call(ctx, log, chatID, msgs)
		if err != nil {
			return ChatOutcome{Kind: ChatFailure}
		}
		return ChatOutcome{Kind: ChatReply, Reply: reply}
	}

	unlock := c.locks.lock(userID)
	defer unlock()

	if err := c.history.EnsureSeeded(ctx, userID, c.opts.SystemPrompt); err != nil {
		log.Error().Err(err).Msg("seed history")
		return ChatOutcome{Kind: ChatFailure}
	}
	if err := c.history.AppendUser(ctx, userID, text); err != nil {
		log.Error().Err(err).Msg("append user message")
		return ChatOutcome{Kind: ChatFailure}
	}
	msgs, err := c.history.Snapshot(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("snapshot history")
		return ChatOutcome{Kind: ChatFailure}
	}

	reply, err := c.call(ctx, log, chatID, msgs)
	if err != nil {
		// the user message stays as the last entry
		return ChatOutcome{Kind: ChatFailure}
	}
	if err := c.history.AppendAssistant(ctx, userID, reply); err != nil {
		log.Error().Err(err).Msg("append assistant message")
	}
	return ChatOutcome{Kind: ChatReply, Reply: reply}
}

// call shows the typing indicator and makes exactly one completion attempt.
func (c *chatUC) call(ctx context.Context, log *zerolog.Logger, chatID int64, msgs []model.Message) (string, error) {
	if c.typing != nil {
		if err := c.typing.SendTyping(ctx, chatID); err != nil {
			log.Debug().Err(err).Msg("typing indicator")
		}
	}

	estimate := c.ai.CountTokens(c.opts.Model, msgs)
	metrics.ObservePromptEstimate(c.opts.Model, estimate)
	log.Debug().Int("messages", len(msgs)).Int("prompt_tokens_est", estimate).Msg("completion request")

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, usage, err := c.ai.CompleteWithUsage(ctx, c.opts.Model, msgs)
	metrics.ObserveCompletion(c.ai.Provider(), c.opts.Model, usage.PromptTokens, usage.CompletionTokens, time.Since(start), err == nil)
	if err != nil {
		ev := log.Error().Err(err).Str("provider", c.ai.Provider())
		if errors.Is(err, context.DeadlineExceeded) {
			ev = ev.Bool("timeout", true)
		}
		ev.Msg("completion failed")
		return "", err
	}
	return reply, nil
}

func (c *chatUC) Reset(ctx context.Context, userID int64) error {
	if c.history == nil {
		return nil
	}
	unlock := c.locks.lock(userID)
	defer unlock()
	return c.history.Reset(ctx, userID)
}

// userLocks hands out one mutex per user id and forgets it once unused.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[int64]*userLock)}
}

func (u *userLocks) lock(id int64) (unlock func()) {
	u.mu.Lock()
	l, ok := u.m[id]
	if !ok {
		l = &userLock{}
		u.m[id] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.m, id)
		}
		u.mu.Unlock()
	}
}
