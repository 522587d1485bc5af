package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"telegram-ai-proxy/internal/domain"
)

const (
	DefaultSystemPrompt = "You are LlamaPro AI, a helpful, friendly, and concise Telegram assistant. " +
		"Use Markdown for formatting bold text or code blocks."
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultHistoryCap  = 11
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token       string `yaml:"token"`
	Workers     int    `yaml:"workers"`      // update shards
	QueueSize   int    `yaml:"queue_size"`   // per-shard backlog
	PollTimeout int    `yaml:"poll_timeout"` // long polling seconds
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"` // 0 disables the admin server
}

type AIConfig struct {
	Provider        string        `yaml:"provider"` // openai | gemini | noop
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type AccessConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ChannelID     string        `yaml:"channel_id"`  // numeric id or @username
	ChannelURL    string        `yaml:"channel_url"` // join link shown on the Join button
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
}

// HistoryConfig.Enabled left unset follows access.enabled: the gated bot
// remembers conversations, the open one answers each message on its own.
type HistoryConfig struct {
	Enabled *bool `yaml:"enabled"`
	Cap     int   `yaml:"cap"`
}

// On reports whether per-user history is kept.
func (h HistoryConfig) On() bool { return h.Enabled != nil && *h.Enabled }

type ChatConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
	Language     string `yaml:"language"`
}

type Config struct {
	Bot     BotConfig     `yaml:"bot"`
	Log     LogConfig     `yaml:"log"`
	Admin   AdminConfig   `yaml:"admin"`
	AI      AIConfig      `yaml:"ai"`
	Access  AccessConfig  `yaml:"access"`
	History HistoryConfig `yaml:"history"`
	Chat    ChatConfig    `yaml:"chat"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Default returns a config with every optional field filled in.
func Default() *Config {
	return &Config{
		Bot:     BotConfig{Workers: 8, QueueSize: 64, PollTimeout: 60},
		Log:     LogConfig{Level: "info", Format: "json"},
		Admin:   AdminConfig{Port: 8080},
		History: HistoryConfig{Cap: DefaultHistoryCap},
		Chat:    ChatConfig{SystemPrompt: DefaultSystemPrompt, Language: "en"},
		AI: AIConfig{
			Provider:        "openai",
			BaseURL:         DefaultGroqBaseURL,
			Model:           DefaultModel,
			Temperature:     0.7,
			MaxTokens:       1024,
			Timeout:         60 * time.Second,
			ConcurrentLimit: 16,
		},
		Access: AccessConfig{LookupTimeout: 10 * time.Second},
	}
}

// LoadConfig reads the YAML file at path (optional when missing), a .env file
// in the working directory when present, then applies environment overrides
// and validates the result. Validation failures wrap domain.ErrConfiguration.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse config: %v", domain.ErrConfiguration, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// environment only
		default:
			return nil, fmt.Errorf("%w: read config: %v", domain.ErrConfiguration, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	normalize(cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.QueueSize <= 0 {
		cfg.Bot.QueueSize = 64
	}
	if cfg.Bot.PollTimeout <= 0 {
		cfg.Bot.PollTimeout = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = DefaultModel
	}
	if cfg.AI.Provider == "openai" && cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = DefaultGroqBaseURL
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 60 * time.Second
	}
	if cfg.Access.LookupTimeout <= 0 {
		cfg.Access.LookupTimeout = 10 * time.Second
	}
	if cfg.History.Enabled == nil {
		on := cfg.Access.Enabled
		cfg.History.Enabled = &on
	}
	if cfg.History.Cap == 0 {
		cfg.History.Cap = DefaultHistoryCap
	}
	if strings.TrimSpace(cfg.Chat.SystemPrompt) == "" {
		cfg.Chat.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Chat.Language == "" {
		cfg.Chat.Language = "en"
	}
}

// Validate checks required credentials and value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Bot.Token == "" {
		problems = append(problems, "bot.token (TELEGRAM_TOKEN) is required")
	}
	switch c.AI.Provider {
	case "openai", "gemini":
		if c.AI.APIKey == "" {
			problems = append(problems, "ai.api_key (AI_API_KEY) is required")
		}
	case "noop":
		if !c.Runtime.Dev {
			problems = append(problems, "ai.provider=noop is only allowed with -dev")
		}
	default:
		problems = append(problems, fmt.Sprintf("ai.provider %q is not supported", c.AI.Provider))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		problems = append(problems, "ai.temperature must be within [0, 2]")
	}
	if c.History.Cap < 2 {
		problems = append(problems, "history.cap must be at least 2")
	}
	if c.Access.Enabled {
		if strings.TrimSpace(c.Access.ChannelID) == "" {
			problems = append(problems, "access.channel_id (CHANNEL_ID) is required when the access gate is enabled")
		}
		if strings.TrimSpace(c.Access.ChannelURL) == "" {
			problems = append(problems, "access.channel_url (CHANNEL_URL) is required when the access gate is enabled")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides cfg with environment variables. The first name in each
// list wins over its aliases.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(dst *string, names ...string) {
		if v, ok := first(lookup, names...); ok {
			*dst = v
		}
	}
	var errs []string
	integer := func(dst *int, names ...string) {
		if v, ok := first(lookup, names...); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", names[0], err))
				return
			}
			*dst = n
		}
	}
	boolean := func(dst *bool, names ...string) {
		if v, ok := first(lookup, names...); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", names[0], err))
				return
			}
			*dst = b
		}
	}
	optBoolean := func(dst **bool, names ...string) {
		if _, ok := first(lookup, names...); !ok {
			return
		}
		var b bool
		boolean(&b, names...)
		*dst = &b
	}

	str(&cfg.Bot.Token, "TELEGRAM_TOKEN", "BOT_TOKEN")
	str(&cfg.AI.APIKey, "AI_API_KEY", "GROQ_API_KEY")
	str(&cfg.AI.Provider, "AI_PROVIDER")
	str(&cfg.AI.BaseURL, "AI_BASE_URL")
	str(&cfg.AI.Model, "AI_MODEL")
	integer(&cfg.AI.MaxTokens, "AI_MAX_TOKENS")
	if v, ok := first(lookup, "AI_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("AI_TEMPERATURE: %v", err))
		} else {
			cfg.AI.Temperature = f
		}
	}
	str(&cfg.Access.ChannelID, "CHANNEL_ID")
	str(&cfg.Access.ChannelURL, "CHANNEL_URL")
	boolean(&cfg.Access.Enabled, "ACCESS_GATE")
	optBoolean(&cfg.History.Enabled, "HISTORY_ENABLED")
	integer(&cfg.History.Cap, "HISTORY_CAP")
	str(&cfg.Chat.SystemPrompt, "SYSTEM_PROMPT")
	str(&cfg.Log.Level, "LOG_LEVEL")
	str(&cfg.Log.Format, "LOG_FORMAT")
	integer(&cfg.Admin.Port, "ADMIN_PORT")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

func first(lookup lookupFunc, names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := lookup(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
