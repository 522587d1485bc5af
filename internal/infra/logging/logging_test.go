package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"telegram-ai-proxy/internal/config"
)

func TestRedact(t *testing.T) {
	if got := Redact("hello world", true); got != "hello world" {
		t.Errorf("dev mode should not redact, got %q", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("short text: got %q", got)
	}
	if got := Redact("привет мир как дела", false); got != "прив...ла" {
		t.Errorf("rune-safe preview: got %q", got)
	}
}

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithTgID(WithTraceID(context.Background(), "trace-1"), 42)
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "trace-1" {
		t.Errorf("trace_id = %v", line["trace_id"])
	}
	if line["tg_id"] != float64(42) {
		t.Errorf("tg_id = %v", line["tg_id"])
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("TraceID = %q", TraceID(ctx))
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should be written")
	}
}
