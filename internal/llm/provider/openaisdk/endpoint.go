// Package openaisdk serves every OpenAI-compatible hosted API (OpenAI, Groq,
// OpenRouter, Hugging Face router) through the official Go SDK.
package openaisdk

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
)

type Endpoint struct {
	name        string
	model       string
	temperature float64
	maxTokens   int64
	client      openai.Client
}

// New builds an endpoint. Extra request options (tests pass an
// httptest base URL and client) are appended after the config-derived ones.
func New(cfg config.EndpointConfig, extra ...option.RequestOption) (*Endpoint, error) {
	apiKey := cfg.Credential()
	if apiKey == "" {
		return nil, provider.ErrMissingCredential
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if cfg.Timeout.Duration > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout.Duration))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	opts = append(opts, extra...)

	return &Endpoint{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
		client:      openai.NewClient(opts...),
	}, nil
}

func (e *Endpoint) Name() string { return e.name }

func (e *Endpoint) Generate(ctx context.Context, messages []provider.Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case provider.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(content))
		case provider.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(content))
		default:
			msgs = append(msgs, openai.UserMessage(content))
		}
	}
	if len(msgs) == 0 {
		return "", errors.New("no messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(e.model),
		Messages: msgs,
	}
	if e.temperature > 0 {
		params.Temperature = openai.Float(e.temperature)
	}
	if e.maxTokens > 0 {
		params.MaxTokens = openai.Int(e.maxTokens)
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	for _, choice := range resp.Choices {
		if strings.TrimSpace(choice.Message.Content) != "" {
			return choice.Message.Content, nil
		}
	}
	return "", provider.ErrEmptyCompletion
}
