package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndNormalisation(t *testing.T) {
	IncAccessCheck(" Member ")
	IncAccessCheck("member")
	if got := testutil.ToFloat64(accessChecksTotal.WithLabelValues("member")); got != 2 {
		t.Fatalf("access_checks_total{member} = %v, want 2", got)
	}

	IncTelegramCommand("/START")
	if got := testutil.ToFloat64(telegramCommandsReceivedTotal.WithLabelValues("/start")); got != 1 {
		t.Fatalf("telegram_commands_received_total{/start} = %v, want 1", got)
	}

	ObserveCompletion("openai", "Model-X", 10, 5, 20*time.Millisecond, true)
	if got := testutil.ToFloat64(aiTokensIn.WithLabelValues("openai", "model-x")); got != 10 {
		t.Fatalf("ai_tokens_in = %v, want 10", got)
	}
	if got := testutil.ToFloat64(aiTokensOut.WithLabelValues("openai", "model-x")); got != 5 {
		t.Fatalf("ai_tokens_out = %v, want 5", got)
	}
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
