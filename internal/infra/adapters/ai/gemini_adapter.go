package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/domain/model"
	"telegram-ai-proxy/internal/domain/ports/adapter"
)

var _ adapter.CompletionAdapter = (*GeminiAdapter)(nil)

type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	temperature  float32
	maxOut       int32
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, cfg GeminiConfig) (*GeminiAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{
		client:       c,
		defaultModel: cfg.Model,
		temperature:  float32(cfg.Temperature),
		maxOut:       int32(cfg.MaxTokens),
	}, nil
}

func (g *GeminiAdapter) Provider() string { return "gemini" }

func (g *GeminiAdapter) Complete(ctx context.Context, modelName string, messages []model.Message) (string, error) {
	reply, _, err := g.CompleteWithUsage(ctx, modelName, messages)
	return reply, err
}

func (g *GeminiAdapter) CompleteWithUsage(ctx context.Context, modelName string, messages []model.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, fmt.Errorf("%w: gemini: no messages", domain.ErrCompletionFailure)
	}
	system, contents := toGenAIContents(messages)
	if len(contents) == 0 {
		return "", adapter.Usage{}, fmt.Errorf("%w: gemini: no user content", domain.ErrCompletionFailure)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxOut,
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelOrDefault(modelName, g.defaultModel), contents, cfg)
	if err != nil {
		return "", adapter.Usage{}, fmt.Errorf("%w: gemini: %w", domain.ErrCompletionFailure, err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var b strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		text = b.String()
	}
	if strings.TrimSpace(text) == "" {
		return "", adapter.Usage{}, fmt.Errorf("%w: gemini: empty candidate", domain.ErrCompletionFailure)
	}

	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text, u, nil
}

func (g *GeminiAdapter) CountTokens(modelName string, messages []model.Message) int {
	return CountTokens(modelOrDefault(modelName, g.defaultModel), messages)
}

// toGenAIContents splits system messages into one system instruction and
// maps the remaining turns onto Gemini's user/model roles.
func toGenAIContents(msgs []model.Message) (string, []*genai.Content) {
	var system []string
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Content)
			continue
		case model.RoleAssistant:
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  string(role),
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return strings.Join(system, "\n\n"), out
}

func modelOrDefault(modelName, def string) string {
	if strings.TrimSpace(modelName) != "" {
		return modelName
	}
	return def
}
