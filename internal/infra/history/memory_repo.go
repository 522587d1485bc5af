// Package history keeps bounded per-user conversations in process memory.
// Nothing is persisted: a restart starts every user from an empty history.
package history

import (
	"context"
	"sync"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/repository"
	"telegram-ai-proxy/internal/infra/metrics"
)

var _ repository.HistoryRepository = (*MemoryRepo)(nil)

type conversation struct {
	mu   sync.Mutex
	msgs []model.Message
}

// MemoryRepo implements repository.HistoryRepository. The user map and each
// conversation are locked separately, so different users never contend on
// anything but the brief map lookup.
type MemoryRepo struct {
	cap int

	mu    sync.RWMutex
	convs map[int64]*conversation
}

// NewMemoryRepo returns a repo that keeps at most capacity messages per user.
func NewMemoryRepo(capacity int) (*MemoryRepo, error) {
	if capacity < 2 {
		return nil, domain.ErrInvalidArgument
	}
	return &MemoryRepo{cap: capacity, convs: make(map[int64]*conversation)}, nil
}

func (r *MemoryRepo) Cap() int { return r.cap }

func (r *MemoryRepo) get(userID int64) *conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.convs[userID]
}

func (r *MemoryRepo) EnsureSeeded(ctx context.Context, userID int64, systemPrompt string) error {
	r.mu.Lock()
	if _, ok := r.convs[userID]; ok {
		r.mu.Unlock()
		return nil
	}
	r.convs[userID] = &conversation{
		msgs: append(make([]model.Message, 0, r.cap+1), model.SystemMessage(systemPrompt)),
	}
	n := len(r.convs)
	r.mu.Unlock()

	metrics.SetConversations(n)
	return nil
}

func (r *MemoryRepo) AppendUser(ctx context.Context, userID int64, text string) error {
	return r.append(userID, model.UserMessage(text))
}

func (r *MemoryRepo) AppendAssistant(ctx context.Context, userID int64, text string) error {
	return r.append(userID, model.AssistantMessage(text))
}

// append adds m and applies the cap: [first] + last cap-1 messages.
func (r *MemoryRepo) append(userID int64, m model.Message) error {
	c := r.get(userID)
	if c == nil {
		return domain.ErrInvalidArgument
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.msgs = append(c.msgs, m)
	if len(c.msgs) > r.cap {
		c.msgs = truncate(c.msgs, r.cap)
		metrics.IncTruncation()
	}
	return nil
}

// truncate returns [msgs[0]] followed by the last max-1 elements of msgs.
// It counts raw messages, not user/assistant pairs.
func truncate(msgs []model.Message, max int) []model.Message {
	if len(msgs) <= max {
		return msgs
	}
	out := make([]model.Message, 0, max+1)
	out = append(out, msgs[0])
	out = append(out, msgs[len(msgs)-(max-1):]...)
	return out
}

func (r *MemoryRepo) Snapshot(ctx context.Context, userID int64) ([]model.Message, error) {
	c := r.get(userID)
	if c == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Message, len(c.msgs))
	copy(out, c.msgs)
	return out, nil
}

func (r *MemoryRepo) Reset(ctx context.Context, userID int64) error {
	r.mu.Lock()
	delete(r.convs, userID)
	n := len(r.convs)
	r.mu.Unlock()

	metrics.SetConversations(n)
	return nil
}

func (r *MemoryRepo) Len(ctx context.Context, userID int64) int {
	c := r.get(userID)
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (r *MemoryRepo) Stats(ctx context.Context) map[int64]int {
	r.mu.RLock()
	users := make(map[int64]*conversation, len(r.convs))
	for id, c := range r.convs {
		users[id] = c
	}
	r.mu.RUnlock()

	out := make(map[int64]int, len(users))
	for id, c := range users {
		c.mu.Lock()
		out[id] = len(c.msgs)
		c.mu.Unlock()
	}
	return out
}
