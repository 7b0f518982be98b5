// Package openai transforms text with the OpenAI chat completion API.
package openai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"tableflip.dev/wordsmith/pkg/backend"
)

// Config configures the client.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint.
	BaseURL   string
	MaxTokens int
}

// Transformer implements backend.Transformer.
type Transformer struct {
	client    *openai.Client
	model     string
	maxTokens int
	hasKey    bool
}

var _ backend.Transformer = (*Transformer)(nil)

// New returns a transformer for cfg.
func New(cfg Config) *Transformer {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Transformer{
		client:    openai.NewClientWithConfig(oc),
		model:     model,
		maxTokens: maxTokens,
		hasKey:    cfg.APIKey != "",
	}
}

// Transform implements backend.Transformer.
func (t *Transformer) Transform(ctx context.Context, text string, ct backend.ConvertType) (string, error) {
	if !t.hasKey {
		return "", backend.NewError(backend.EnvError, "OPENAI_API_KEY is not configured")
	}
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: backend.Instruction(ct) + " Reply with the rewritten text only."},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: t.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", backend.Wrap(backend.APIError, err, "openai returned status %d", apiErr.HTTPStatusCode)
		}
		return "", backend.Wrap(backend.HTTPError, err, "openai request failed")
	}
	if len(resp.Choices) == 0 {
		return "", backend.NewError(backend.APIError, "openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
