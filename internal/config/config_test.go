package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"telegram-ai-proxy/internal/domain"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_TOKEN", "BOT_TOKEN", "AI_API_KEY", "GROQ_API_KEY", "AI_PROVIDER",
		"AI_BASE_URL", "AI_MODEL", "AI_MAX_TOKENS", "AI_TEMPERATURE", "CHANNEL_ID",
		"CHANNEL_URL", "ACCESS_GATE", "HISTORY_ENABLED", "HISTORY_CAP", "SYSTEM_PROMPT",
		"LOG_LEVEL", "LOG_FORMAT", "ADMIN_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
bot:
  token: "tg-token"
ai:
  api_key: "key"
history:
  cap: 5
access:
  enabled: true
  channel_id: "@llamapro"
  channel_url: "https://t.me/llamapro"
`)
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bot.Token != "tg-token" || cfg.AI.APIKey != "key" {
		t.Fatalf("credentials not loaded: %+v", cfg)
	}
	if cfg.History.Cap != 5 || !cfg.History.On() {
		t.Fatalf("history config: %+v", cfg.History)
	}
	if cfg.AI.Model != DefaultModel || cfg.AI.BaseURL != DefaultGroqBaseURL {
		t.Fatalf("ai defaults not applied: %+v", cfg.AI)
	}
	if cfg.AI.Temperature != 0.7 || cfg.AI.MaxTokens != 1024 {
		t.Fatalf("sampling defaults: temp=%v max=%d", cfg.AI.Temperature, cfg.AI.MaxTokens)
	}
	if cfg.AI.Timeout != 60*time.Second || cfg.Access.LookupTimeout != 10*time.Second {
		t.Fatalf("timeout defaults: ai=%s access=%s", cfg.AI.Timeout, cfg.Access.LookupTimeout)
	}
	if cfg.Chat.SystemPrompt != DefaultSystemPrompt {
		t.Fatalf("system prompt default not applied")
	}
}

func TestLoadConfig_MissingFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("HISTORY_CAP", "7")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bot.Token != "env-token" || cfg.AI.APIKey != "groq-key" || cfg.History.Cap != 7 {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadConfig_HistoryFollowsGate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want bool
	}{
		{name: "open bot is stateless", want: false},
		{name: "gated bot keeps history", yaml: "access: {enabled: true, channel_id: '@c', channel_url: 'https://t.me/c'}\n", want: true},
		{name: "explicit history without gate", yaml: "history: {enabled: true}\n", want: true},
		{name: "env disables history behind the gate",
			yaml: "access: {enabled: true, channel_id: '@c', channel_url: 'https://t.me/c'}\n",
			env:  map[string]string{"HISTORY_ENABLED": "false"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("TELEGRAM_TOKEN", "t")
			t.Setenv("AI_API_KEY", "k")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig(writeConfig(t, tt.yaml), false)
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if got := cfg.History.On(); got != tt.want {
				t.Fatalf("history on = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
	for _, want := range []string{"bot.token", "ai.api_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("diagnostic should mention %s: %v", want, err)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Bot.Token = "t"
		c.AI.APIKey = "k"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "gate without channel", mutate: func(c *Config) { c.Access.Enabled = true }, wantErr: "access.channel_id"},
		{name: "gate without url", mutate: func(c *Config) {
			c.Access.Enabled = true
			c.Access.ChannelID = "-100123"
		}, wantErr: "access.channel_url"},
		{name: "cap too small", mutate: func(c *Config) { c.History.Cap = 1 }, wantErr: "history.cap"},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "cohere" }, wantErr: "not supported"},
		{name: "noop outside dev", mutate: func(c *Config) { c.AI.Provider = "noop" }, wantErr: "-dev"},
		{name: "noop in dev", mutate: func(c *Config) {
			c.AI.Provider = "noop"
			c.AI.APIKey = ""
			c.Runtime.Dev = true
		}},
		{name: "temperature out of range", mutate: func(c *Config) { c.AI.Temperature = 3 }, wantErr: "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrConfiguration) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Run("primary name wins over alias", func(t *testing.T) {
		cfg := Default()
		err := applyEnv(cfg, mapLookup(map[string]string{
			"TELEGRAM_TOKEN": "primary",
			"BOT_TOKEN":      "alias",
			"AI_TEMPERATURE": "0.2",
			"ACCESS_GATE":    "true",
			"CHANNEL_ID":     " @chan ",
		}))
		if err != nil {
			t.Fatalf("applyEnv: %v", err)
		}
		if cfg.Bot.Token != "primary" {
			t.Errorf("token = %q", cfg.Bot.Token)
		}
		if cfg.AI.Temperature != 0.2 || !cfg.Access.Enabled || cfg.Access.ChannelID != "@chan" {
			t.Errorf("overrides not applied: %+v %+v", cfg.AI, cfg.Access)
		}
	})

	t.Run("alias used when primary is blank", func(t *testing.T) {
		cfg := Default()
		if err := applyEnv(cfg, mapLookup(map[string]string{"TELEGRAM_TOKEN": " ", "BOT_TOKEN": "alias"})); err != nil {
			t.Fatalf("applyEnv: %v", err)
		}
		if cfg.Bot.Token != "alias" {
			t.Errorf("token = %q", cfg.Bot.Token)
		}
	})

	t.Run("malformed numbers are reported", func(t *testing.T) {
		cfg := Default()
		err := applyEnv(cfg, mapLookup(map[string]string{"HISTORY_CAP": "eleven", "HISTORY_ENABLED": "maybe"}))
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("want ErrConfiguration, got %v", err)
		}
		if !strings.Contains(err.Error(), "HISTORY_CAP") || !strings.Contains(err.Error(), "HISTORY_ENABLED") {
			t.Fatalf("diagnostic incomplete: %v", err)
		}
	})
}
