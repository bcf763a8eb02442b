// Package gemini adapts Google's Gemini API (google.golang.org/genai) to
// provider.Endpoint.
package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
)

type Endpoint struct {
	name        string
	model       string
	temperature float32
	maxTokens   int32
	client      *genai.Client
}

func New(ctx context.Context, cfg config.EndpointConfig) (*Endpoint, error) {
	apiKey := cfg.Credential()
	if apiKey == "" {
		return nil, provider.ErrMissingCredential
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}
	if cfg.Timeout.Duration > 0 {
		timeout := cfg.Timeout.Duration
		cc.HTTPOptions.Timeout = &timeout
	}
	if len(cfg.Headers) > 0 {
		h := make(map[string][]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			h[k] = []string{v}
		}
		cc.HTTPOptions.Headers = h
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Endpoint{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		client:      client,
	}, nil
}

func (e *Endpoint) Name() string { return e.name }

func (e *Endpoint) Generate(ctx context.Context, messages []provider.Message) (string, error) {
	system, turns := provider.SplitSystem(messages)
	contents := toContents(turns)
	if len(contents) == 0 {
		return "", errors.New("no messages")
	}

	gc := &genai.GenerateContentConfig{}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if e.temperature > 0 {
		gc.Temperature = genai.Ptr(e.temperature)
	}
	if e.maxTokens > 0 {
		gc.MaxOutputTokens = e.maxTokens
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, gc)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", provider.ErrEmptyCompletion
	}
	return text, nil
}

func toContents(turns []provider.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		var role genai.Role = genai.RoleUser
		if m.Role == provider.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}
