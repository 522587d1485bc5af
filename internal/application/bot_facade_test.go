package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"telegram-ai-proxy/internal/application"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/usecase"
)

type mockAccess struct {
	member bool
	calls  int
}

func (m *mockAccess) Check(ctx context.Context, userID int64) model.MembershipResult {
	m.calls++
	if m.member {
		return model.MembershipResult{Status: model.MembershipMember, Role: model.MemberRoleMember}
	}
	return model.MembershipResult{Status: model.MembershipNotMember, Role: model.MemberRoleLeft}
}

type mockChat struct {
	out      usecase.ChatOutcome
	resetErr error
	resets   int
	texts    []string
}

func (m *mockChat) HandleMessage(ctx context.Context, userID, chatID int64, text string) usecase.ChatOutcome {
	m.texts = append(m.texts, text)
	return m.out
}

func (m *mockChat) Reset(ctx context.Context, userID int64) error {
	m.resets++
	return m.resetErr
}

// keyTranslator echoes the key so assertions stay independent of wording.
type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string { return key }

func newFacade(access application.AccessUseCaseIface, chat *mockChat) *application.BotFacade {
	logger := zerolog.Nop()
	return application.NewBotFacade(access, chat, keyTranslator{}, application.FacadeOptions{
		ChannelURL: "https://t.me/llamapro",
		HistoryCap: 11,
	}, &logger)
}

func assertLocked(t *testing.T, r application.Response, wantText string) {
	t.Helper()
	if r.Text != wantText {
		t.Fatalf("text = %q, want %q", r.Text, wantText)
	}
	if len(r.Buttons) != 2 {
		t.Fatalf("want Join and Verify buttons, got %+v", r.Buttons)
	}
	join, verify := r.Buttons[0][0], r.Buttons[1][0]
	if join.URL != "https://t.me/llamapro" || join.Data != "" {
		t.Fatalf("join button = %+v", join)
	}
	if verify.Data != application.CallbackVerify || verify.URL != "" {
		t.Fatalf("verify button = %+v", verify)
	}
}

func TestHandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("no gate", func(t *testing.T) {
		r := newFacade(nil, &mockChat{}).HandleStart(ctx, 1)
		if r.Text != "welcome" || r.Buttons != nil {
			t.Fatalf("got %+v", r)
		}
	})
	t.Run("member", func(t *testing.T) {
		r := newFacade(&mockAccess{member: true}, &mockChat{}).HandleStart(ctx, 1)
		if r.Text != "welcome_back" {
			t.Fatalf("got %+v", r)
		}
	})
	t.Run("not member", func(t *testing.T) {
		assertLocked(t, newFacade(&mockAccess{}, &mockChat{}).HandleStart(ctx, 1), "locked")
	})
}

func TestHandleVerify(t *testing.T) {
	ctx := context.Background()
	access := &mockAccess{}
	f := newFacade(access, &mockChat{})

	assertLocked(t, f.HandleVerify(ctx, 1), "not_verified")

	access.member = true
	if r := f.HandleVerify(ctx, 1); r.Text != "verified" || r.Buttons != nil {
		t.Fatalf("after joining: %+v", r)
	}
	if access.calls != 2 {
		t.Fatalf("verify must re-check every time, calls = %d", access.calls)
	}
}

func TestHandleText(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		out  usecase.ChatOutcome
		want string
	}{
		{name: "reply", out: usecase.ChatOutcome{Kind: usecase.ChatReply, Reply: "A"}, want: "A"},
		{name: "failure", out: usecase.ChatOutcome{Kind: usecase.ChatFailure}, want: "fallback_error"},
		{name: "ignored", out: usecase.ChatOutcome{Kind: usecase.ChatIgnored}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChat{out: tt.out}
			r := newFacade(nil, chat).HandleText(ctx, 1, 1, "hello")
			if r.Text != tt.want || r.Buttons != nil {
				t.Fatalf("got %+v", r)
			}
			if len(chat.texts) != 1 || chat.texts[0] != "hello" {
				t.Fatalf("orchestrator got %v", chat.texts)
			}
		})
	}

	t.Run("denied", func(t *testing.T) {
		chat := &mockChat{out: usecase.ChatOutcome{Kind: usecase.ChatDenied}}
		assertLocked(t, newFacade(&mockAccess{}, chat).HandleText(ctx, 1, 1, "hi"), "locked")
	})
}

func TestHandleReset(t *testing.T) {
	ctx := context.Background()

	chat := &mockChat{}
	if r := newFacade(nil, chat).HandleReset(ctx, 1); r.Text != "reset_done" || chat.resets != 1 {
		t.Fatalf("got %+v resets=%d", r, chat.resets)
	}

	chat = &mockChat{}
	assertLocked(t, newFacade(&mockAccess{}, chat).HandleReset(ctx, 1), "locked")
	if chat.resets != 0 {
		t.Fatal("non-members must not reach reset")
	}

	chat = &mockChat{resetErr: errors.New("boom")}
	if r := newFacade(nil, chat).HandleReset(ctx, 1); r.Text != "fallback_error" {
		t.Fatalf("got %+v", r)
	}
}

func TestHandleHelp(t *testing.T) {
	ctx := context.Background()
	if r := newFacade(nil, &mockChat{}).HandleHelp(ctx, 1); r.Text != "help" {
		t.Fatalf("got %+v", r)
	}
	logger := zerolog.Nop()
	stateless := application.NewBotFacade(nil, &mockChat{}, keyTranslator{}, application.FacadeOptions{Stateless: true}, &logger)
	if r := stateless.HandleHelp(ctx, 1); r.Text != "help_stateless" {
		t.Fatalf("got %+v", r)
	}
	assertLocked(t, newFacade(&mockAccess{}, &mockChat{}).HandleHelp(ctx, 1), "locked")
}

func TestHandleBusy(t *testing.T) {
	access := &mockAccess{}
	r := newFacade(access, &mockChat{}).HandleBusy(context.Background())
	if r.Text != "fallback_error" || len(r.Buttons) != 0 {
		t.Fatalf("busy = %+v", r)
	}
	if access.calls != 0 {
		t.Fatal("busy reply must not check membership")
	}
}
