// Package anthropicsdk adapts the Anthropic Messages API to provider.Endpoint.
package anthropicsdk

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
)

const defaultMaxTokens = 4096

type Endpoint struct {
	name        string
	model       string
	temperature float64
	maxTokens   int64
	client      anthropic.Client
}

func New(cfg config.EndpointConfig, extra ...aoption.RequestOption) (*Endpoint, error) {
	apiKey := cfg.Credential()
	if apiKey == "" {
		return nil, provider.ErrMissingCredential
	}
	opts := []aoption.RequestOption{
		aoption.WithAPIKey(apiKey),
		aoption.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, aoption.WithBaseURL(base))
	}
	if cfg.Timeout.Duration > 0 {
		opts = append(opts, aoption.WithRequestTimeout(cfg.Timeout.Duration))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, aoption.WithHeader(k, v))
	}
	opts = append(opts, extra...)

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Endpoint{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		client:      anthropic.NewClient(opts...),
	}, nil
}

func (e *Endpoint) Name() string { return e.name }

func (e *Endpoint) Generate(ctx context.Context, messages []provider.Message) (string, error) {
	system, turns := provider.SplitSystem(messages)
	msgs := buildMessages(turns)
	if len(msgs) == 0 {
		return "", errors.New("no messages")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if e.temperature > 0 {
		params.Temperature = anthropic.Float(e.temperature)
	}

	msg, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", provider.ErrEmptyCompletion
	}
	return b.String(), nil
}

// buildMessages merges consecutive turns from the same side, since the
// Messages API requires strict user/assistant alternation starting with user.
func buildMessages(turns []provider.Message) []anthropic.MessageParam {
	type turn struct {
		assistant bool
		parts     []string
	}
	var merged []turn
	for _, m := range turns {
		isAssistant := m.Role == provider.RoleAssistant
		if n := len(merged); n > 0 && merged[n-1].assistant == isAssistant {
			merged[n-1].parts = append(merged[n-1].parts, m.Content)
			continue
		}
		merged = append(merged, turn{assistant: isAssistant, parts: []string{m.Content}})
	}
	if len(merged) > 0 && merged[0].assistant {
		merged = append([]turn{{parts: []string{"Continue."}}}, merged...)
	}

	out := make([]anthropic.MessageParam, 0, len(merged))
	for _, t := range merged {
		block := anthropic.NewTextBlock(strings.Join(t.parts, "\n\n"))
		if t.assistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
