package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.CompletionAdapter = (*OpenAIAdapter)(nil)

// OpenAIConfig configures an OpenAI-compatible endpoint (OpenAI, Groq, ...).
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // e.g. https://api.groq.com/openai/v1
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIAdapter implements adapter.CompletionAdapter using the Chat Completions API.
type OpenAIAdapter struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	provider    string
}

func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// one attempt per call
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAIAdapter{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		provider:    providerName(cfg.BaseURL),
	}, nil
}

// providerName labels metrics by host so Groq and OpenAI stay apart.
func providerName(baseURL string) string {
	switch l := strings.ToLower(baseURL); {
	case strings.Contains(l, "groq"):
		return "groq"
	case l == "" || strings.Contains(l, "api.openai.com"):
		return "openai"
	default:
		return "openai-compatible"
	}
}

func (o *OpenAIAdapter) Provider() string { return o.provider }

func (o *OpenAIAdapter) Complete(ctx context.Context, modelName string, messages []model.Message) (string, error) {
	text, _, err := o.CompleteWithUsage(ctx, modelName, messages)
	return text, err
}

func (o *OpenAIAdapter) CompleteWithUsage(ctx context.Context, modelName string, messages []model.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, fmt.Errorf("%w: no messages", domain.ErrCompletionFailure)
	}
	if modelName == "" {
		modelName = o.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    modelName,
		Messages: toOpenAIMessages(messages),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}
	params.Temperature = openai.Float(o.temperature)

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", adapter.Usage{}, fmt.Errorf("%w: %s: %w", domain.ErrCompletionFailure, o.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", adapter.Usage{}, fmt.Errorf("%w: %s: no choices", domain.ErrCompletionFailure, o.provider)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", adapter.Usage{}, fmt.Errorf("%w: %s: empty choice content", domain.ErrCompletionFailure, o.provider)
	}
	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return text, usage, nil
}

func (o *OpenAIAdapter) CountTokens(modelName string, messages []model.Message) int {
	if modelName == "" {
		modelName = o.model
	}
	return CountTokens(modelName, messages)
}

func toOpenAIMessages(msgs []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
