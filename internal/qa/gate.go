// Package qa scores generated content with a secondary model pass. The gate
// is advisory: it never returns an error and always answers within its
// timeout.
package qa

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/modelparse"
	"github.com/yungbote/courseforge/internal/platform/logger"
)

type Generator interface {
	Route(ctx context.Context, tier router.Tier, messages []provider.Message) (string, error)
}

type Input struct {
	Content          string
	ChapterTitle     string
	SubMaterialTitle string
	Topics           []string
}

type Feedback struct {
	Score          int      `json:"score"`
	Passed         bool     `json:"passed"`
	Issues         []string `json:"issues"`
	Suggestions    []string `json:"suggestions"`
	RevisedContent string   `json:"revisedContent,omitempty"`
	// AutoPassed marks synthetic feedback produced without a model verdict.
	AutoPassed bool `json:"-"`
}

type Options struct {
	Timeout          time.Duration
	MinContentLength int
	PassThreshold    int
	MaxContentChars  int
}

func DefaultOptions() Options {
	return Options{
		Timeout:          10 * time.Second,
		MinContentLength: 100,
		PassThreshold:    8,
		MaxContentChars:  7000,
	}
}

type Gate struct {
	gen    Generator
	log    *logger.Logger
	opts   Options
	tracer trace.Tracer
}

func New(gen Generator, log *logger.Logger, opts Options) *Gate {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.PassThreshold <= 0 {
		opts.PassThreshold = def.PassThreshold
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = def.MaxContentChars
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Gate{gen: gen, log: log.Named("qa"), opts: opts, tracer: otel.Tracer("courseforge/qa")}
}

func autoPass() Feedback {
	return Feedback{Score: 10, Passed: true, Issues: []string{}, Suggestions: []string{}, AutoPassed: true}
}

type verdict struct {
	raw string
	err error
}

// Check races a Powerful-tier review against the gate timeout. A late
// review is abandoned: its goroutine finishes into a buffered channel that
// nobody reads.
func (g *Gate) Check(ctx context.Context, in Input) Feedback {
	if len(strings.TrimSpace(in.Content)) < g.opts.MinContentLength {
		return autoPass()
	}

	ctx, span := g.tracer.Start(ctx, "qa.Check", trace.WithAttributes(
		attribute.String("qa.sub_material", in.SubMaterialTitle),
	))
	defer span.End()

	msgs := reviewMessages(in, g.opts.MaxContentChars)
	done := make(chan verdict, 1)
	go func() {
		raw, err := g.gen.Route(ctx, router.TierPowerful, msgs)
		done <- verdict{raw: raw, err: err}
	}()

	timer := time.NewTimer(g.opts.Timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		span.SetAttributes(attribute.String("qa.outcome", "timeout"))
		g.log.Warn("qa timed out; auto-passing", "sub_material", in.SubMaterialTitle, "timeout", g.opts.Timeout)
		return autoPass()
	case <-ctx.Done():
		span.SetAttributes(attribute.String("qa.outcome", "canceled"))
		return autoPass()
	case v := <-done:
		if v.err != nil {
			span.SetAttributes(attribute.String("qa.outcome", "provider_error"))
			g.log.Warn("qa review failed; auto-passing", "sub_material", in.SubMaterialTitle, "error", v.err)
			return autoPass()
		}
		fb, err := g.interpret(v.raw)
		if err != nil {
			span.SetAttributes(attribute.String("qa.outcome", "malformed"))
			g.log.Warn("qa output unusable; auto-passing", "sub_material", in.SubMaterialTitle, "error", err)
			return autoPass()
		}
		span.SetAttributes(attribute.String("qa.outcome", "reviewed"), attribute.Int("qa.score", fb.Score))
		return fb
	}
}

type rawFeedback struct {
	Score          *float64 `json:"score"`
	Issues         []string `json:"issues"`
	Suggestions    []string `json:"suggestions"`
	RevisedContent *string  `json:"revisedContent"`
}

func (g *Gate) interpret(raw string) (Feedback, error) {
	var rf rawFeedback
	if err := modelparse.Decode(raw, &rf); err != nil {
		return Feedback{}, err
	}
	if rf.Score == nil {
		return Feedback{}, fmt.Errorf("review has no score")
	}
	score := int(math.Round(math.Min(math.Max(*rf.Score, 1), 10)))
	fb := Feedback{
		Score:       score,
		Passed:      score >= g.opts.PassThreshold,
		Issues:      nonEmpty(rf.Issues),
		Suggestions: nonEmpty(rf.Suggestions),
	}
	if rf.RevisedContent != nil {
		fb.RevisedContent = strings.TrimSpace(*rf.RevisedContent)
	}
	return fb, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
