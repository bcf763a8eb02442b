package qa

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
)

type genFunc func(ctx context.Context, tier router.Tier, msgs []provider.Message) (string, error)

func (f genFunc) Route(ctx context.Context, tier router.Tier, msgs []provider.Message) (string, error) {
	return f(ctx, tier, msgs)
}

var longContent = strings.Repeat("Goroutines are cheap. ", 20)

func testOptions() Options {
	return Options{Timeout: 200 * time.Millisecond, MinContentLength: 100, PassThreshold: 8, MaxContentChars: 7000}
}

func TestCheck_ShortContentSkipsBackend(t *testing.T) {
	var calls atomic.Int32
	g := New(genFunc(func(context.Context, router.Tier, []provider.Message) (string, error) {
		calls.Add(1)
		return "", nil
	}), nil, testOptions())

	fb := g.Check(context.Background(), Input{Content: "too short"})
	if !fb.Passed || fb.Score != 10 || !fb.AutoPassed {
		t.Fatalf("fb=%+v", fb)
	}
	if calls.Load() != 0 {
		t.Fatalf("backend called %d times", calls.Load())
	}
}

func TestCheck_NeverBlocks(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	g := New(genFunc(func(context.Context, router.Tier, []provider.Message) (string, error) {
		<-release
		return `{"score": 2}`, nil
	}), nil, testOptions())

	start := time.Now()
	fb := g.Check(context.Background(), Input{Content: longContent})
	elapsed := time.Since(start)

	if !fb.Passed || fb.Score != 10 || len(fb.Issues) != 0 {
		t.Fatalf("fb=%+v", fb)
	}
	if elapsed > 200*time.Millisecond+500*time.Millisecond {
		t.Fatalf("Check took %s", elapsed)
	}
}

func TestCheck_ParsesReview(t *testing.T) {
	var gotTier router.Tier
	g := New(genFunc(func(_ context.Context, tier router.Tier, msgs []provider.Message) (string, error) {
		gotTier = tier
		if !strings.Contains(msgs[1].Content, "Lesson: Channels") {
			t.Errorf("prompt missing lesson title: %q", msgs[1].Content)
		}
		return "```json\n{\"score\": 7, \"issues\": [\"vague intro\", \" \"], \"suggestions\": [\"add example\"], \"revisedContent\": null}\n```", nil
	}), nil, testOptions())

	fb := g.Check(context.Background(), Input{Content: longContent, ChapterTitle: "Concurrency", SubMaterialTitle: "Channels", Topics: []string{"Go"}})
	if gotTier != router.TierPowerful {
		t.Fatalf("tier=%q", gotTier)
	}
	if fb.Score != 7 || fb.Passed || fb.AutoPassed {
		t.Fatalf("fb=%+v", fb)
	}
	if len(fb.Issues) != 1 || fb.Issues[0] != "vague intro" || len(fb.Suggestions) != 1 {
		t.Fatalf("fb=%+v", fb)
	}
	if fb.RevisedContent != "" {
		t.Fatalf("revised=%q", fb.RevisedContent)
	}
}

func TestCheck_PassedFollowsThreshold(t *testing.T) {
	g := New(genFunc(func(context.Context, router.Tier, []provider.Message) (string, error) {
		return `{"score": 8, "passed": false, "revisedContent": "fixed lesson"}`, nil
	}), nil, testOptions())
	fb := g.Check(context.Background(), Input{Content: longContent})
	if !fb.Passed || fb.RevisedContent != "fixed lesson" {
		t.Fatalf("fb=%+v", fb)
	}
}

func TestCheck_ScoreClamped(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`{"score": 1e300}`, 10},
		{`{"score": 42}`, 10},
		{`{"score": -1e300}`, 1},
		{`{"score": 0}`, 1},
		{`{"score": 8.5}`, 9},
		{`{"score": 7.4}`, 7},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			g := New(genFunc(func(context.Context, router.Tier, []provider.Message) (string, error) {
				return tc.raw, nil
			}), nil, testOptions())
			fb := g.Check(context.Background(), Input{Content: longContent})
			if fb.Score != tc.want || fb.AutoPassed {
				t.Fatalf("fb=%+v, want score %d", fb, tc.want)
			}
			if fb.Passed != (tc.want >= 8) {
				t.Fatalf("passed=%v for score %d", fb.Passed, fb.Score)
			}
		})
	}
}

func TestCheck_FailuresAutoPass(t *testing.T) {
	cases := map[string]genFunc{
		"provider error": func(context.Context, router.Tier, []provider.Message) (string, error) {
			return "", errors.New("all powerful providers failed")
		},
		"malformed": func(context.Context, router.Tier, []provider.Message) (string, error) {
			return "I think it is great!", nil
		},
		"no score": func(context.Context, router.Tier, []provider.Message) (string, error) {
			return `{"issues": ["x"]}`, nil
		},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			fb := New(gen, nil, testOptions()).Check(context.Background(), Input{Content: longContent})
			if !fb.Passed || fb.Score != 10 || !fb.AutoPassed {
				t.Fatalf("fb=%+v", fb)
			}
		})
	}
}
