package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
)

// fakeAI returns scripted replies in order and records every request.
type fakeAI struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]model.Message
	// hang blocks each call until its context is done
	hang bool
}

func (f *fakeAI) Provider() string { return "fake" }

func (f *fakeAI) Complete(ctx context.Context, m string, msgs []model.Message) (string, error) {
	s, _, err := f.CompleteWithUsage(ctx, m, msgs)
	return s, err
}

func (f *fakeAI) CompleteWithUsage(ctx context.Context, _ string, msgs []model.Message) (string, adapter.Usage, error) {
	f.mu.Lock()
	cp := make([]model.Message, len(msgs))
	copy(cp, msgs)
	f.calls = append(f.calls, cp)
	hang := f.hang
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", adapter.Usage{}, fmt.Errorf("%w: %w", domain.ErrCompletionFailure, ctx.Err())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", adapter.Usage{}, f.err
	}
	if len(f.replies) == 0 {
		return "", adapter.Usage{}, domain.ErrCompletionFailure
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, adapter.Usage{PromptTokens: 1, CompletionTokens: 1}, nil
}

func (f *fakeAI) CountTokens(string, []model.Message) int { return 0 }

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeLookup reports a fixed role or error for every user.
type fakeLookup struct {
	mu    sync.Mutex
	role  model.MemberRole
	err   error
	calls int
}

func (f *fakeLookup) GetMemberRole(ctx context.Context, channel string, userID int64) (model.MemberRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.role, f.err
}

func (f *fakeLookup) set(role model.MemberRole, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.role, f.err = role, err
}

type fakeTyping struct {
	mu    sync.Mutex
	chats []int64
}

func (f *fakeTyping) SendTyping(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chatID)
	return errors.New("typing is best effort")
}
