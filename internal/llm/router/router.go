package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

// Router executes a tier's endpoints in fixed priority order; the first
// success wins. It keeps no state between calls.
type Router struct {
	tiers  map[Tier][]provider.Endpoint
	log    *logger.Logger
	tracer trace.Tracer
}

// New requires both tiers to be present and non-empty.
func New(tiers map[Tier][]provider.Endpoint, log *logger.Logger) (*Router, error) {
	if log == nil {
		log = logger.Nop()
	}
	r := &Router{
		tiers:  make(map[Tier][]provider.Endpoint, len(tiers)),
		log:    log.Named("router"),
		tracer: otel.Tracer("courseforge/router"),
	}
	for _, t := range []Tier{TierFast, TierPowerful} {
		eps := tiers[t]
		if len(eps) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTier, t)
		}
		seen := map[string]bool{}
		for _, ep := range eps {
			if ep == nil {
				return nil, fmt.Errorf("router: nil endpoint in tier %s", t)
			}
			if seen[ep.Name()] {
				return nil, fmt.Errorf("router: duplicate endpoint %q in tier %s", ep.Name(), t)
			}
			seen[ep.Name()] = true
		}
		r.tiers[t] = append([]provider.Endpoint(nil), eps...)
	}
	return r, nil
}

// Endpoints lists the endpoint names of a tier in attempt order.
func (r *Router) Endpoints(t Tier) []string {
	eps := r.tiers[ParseTier(string(t))]
	out := make([]string, 0, len(eps))
	for _, ep := range eps {
		out = append(out, ep.Name())
	}
	return out
}

// Route sends messages to the tier's endpoints until one returns text.
// If every endpoint fails the result is an *AllProvidersFailedError. A done
// context stops the cascade and its error is returned as is.
func (r *Router) Route(ctx context.Context, tier Tier, messages []provider.Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	tier = ParseTier(string(tier))
	eps := r.tiers[tier]

	ctx, span := r.tracer.Start(ctx, "router.Route", trace.WithAttributes(
		attribute.String("llm.tier", string(tier)),
		attribute.Int("llm.endpoints", len(eps)),
	))
	defer span.End()

	failures := make([]*provider.CallError, 0, len(eps))
	for i, ep := range eps {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "canceled")
			return "", err
		}
		text, err := r.attempt(ctx, tier, i+1, ep, messages)
		if err == nil {
			span.SetAttributes(attribute.String("llm.endpoint", ep.Name()))
			return text, nil
		}
		failures = append(failures, &provider.CallError{Endpoint: ep.Name(), Err: err})
	}

	agg := &AllProvidersFailedError{Tier: tier, Failures: failures}
	span.RecordError(agg)
	span.SetStatus(codes.Error, "all providers failed")
	r.log.Error("all providers failed", "tier", tier, "error", agg.Error())
	return "", agg
}

func (r *Router) attempt(ctx context.Context, tier Tier, n int, ep provider.Endpoint, messages []provider.Message) (string, error) {
	ctx, span := r.tracer.Start(ctx, "provider.Generate", trace.WithAttributes(
		attribute.String("llm.endpoint", ep.Name()),
		attribute.Int("llm.attempt", n),
	))
	defer span.End()

	start := time.Now()
	text, err := ep.Generate(ctx, messages)
	if err == nil && strings.TrimSpace(text) == "" {
		err = provider.ErrEmptyCompletion
	}
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Warn("provider attempt failed", "tier", tier, "endpoint", ep.Name(), "attempt", n, "elapsed_ms", elapsed, "error", err)
		return "", err
	}
	r.log.Debug("provider attempt succeeded", "tier", tier, "endpoint", ep.Name(), "attempt", n, "elapsed_ms", elapsed)
	return text, nil
}
