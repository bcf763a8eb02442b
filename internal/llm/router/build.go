package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/provider/anthropicsdk"
	"github.com/yungbote/courseforge/internal/llm/provider/gemini"
	"github.com/yungbote/courseforge/internal/llm/provider/mock"
	"github.com/yungbote/courseforge/internal/llm/provider/oaihttp"
	"github.com/yungbote/courseforge/internal/llm/provider/openaisdk"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

// NewFromConfig constructs every configured endpoint and the router over
// them. Endpoints without a credential are kept in place but fail fast.
func NewFromConfig(ctx context.Context, tiers config.TiersConfig, log *logger.Logger) (*Router, error) {
	if log == nil {
		log = logger.Nop()
	}
	fast, err := buildTier(ctx, TierFast, tiers.Fast, log)
	if err != nil {
		return nil, err
	}
	powerful, err := buildTier(ctx, TierPowerful, tiers.Powerful, log)
	if err != nil {
		return nil, err
	}
	return New(map[Tier][]provider.Endpoint{TierFast: fast, TierPowerful: powerful}, log)
}

func buildTier(ctx context.Context, tier Tier, cfgs []config.EndpointConfig, log *logger.Logger) ([]provider.Endpoint, error) {
	out := make([]provider.Endpoint, 0, len(cfgs))
	for _, c := range cfgs {
		ep, err := buildEndpoint(ctx, c)
		if errors.Is(err, provider.ErrMissingCredential) {
			log.Warn("endpoint credential missing; endpoint will fail fast", "tier", tier, "endpoint", c.Name, "env", c.APIKeyEnv)
			ep = provider.Unavailable(c.Name, fmt.Errorf("%w (%s)", provider.ErrMissingCredential, c.APIKeyEnv))
			err = nil
		}
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", c.Name, err)
		}
		out = append(out, ep)
	}
	return out, nil
}

func buildEndpoint(ctx context.Context, c config.EndpointConfig) (provider.Endpoint, error) {
	switch c.Type {
	case config.EndpointMock:
		return mock.New(c.Name), nil
	case config.EndpointOAIHTTP:
		return oaihttp.New(c)
	case config.EndpointOpenAI:
		return openaisdk.New(c)
	case config.EndpointAnthropic:
		return anthropicsdk.New(c)
	case config.EndpointGemini:
		return gemini.New(ctx, c)
	default:
		return nil, fmt.Errorf("unsupported endpoint type %q", c.Type)
	}
}
