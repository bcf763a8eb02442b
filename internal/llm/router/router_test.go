package router

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
)

type fakeEndpoint struct {
	name  string
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeEndpoint) Name() string { return f.name }

func (f *fakeEndpoint) Generate(ctx context.Context, _ []provider.Message) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

func ok(name, text string) *fakeEndpoint { return &fakeEndpoint{name: name, text: text} }
func bad(name, msg string) *fakeEndpoint { return &fakeEndpoint{name: name, err: errors.New(msg)} }

func newRouter(t *testing.T, fast, powerful []provider.Endpoint) *Router {
	t.Helper()
	r, err := New(map[Tier][]provider.Endpoint{TierFast: fast, TierPowerful: powerful}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

var hello = []provider.Message{provider.User("hello")}

func TestRoute_FallbackStopsAtFirstSuccess(t *testing.T) {
	e1, e2, e3 := bad("one", "rate limited"), ok("two", "from two"), ok("three", "from three")
	r := newRouter(t, []provider.Endpoint{ok("f", "fast")}, []provider.Endpoint{e1, e2, e3})

	got, err := r.Route(context.Background(), TierPowerful, hello)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got != "from two" {
		t.Fatalf("got=%q", got)
	}
	if e1.calls.Load() != 1 || e2.calls.Load() != 1 || e3.calls.Load() != 0 {
		t.Fatalf("calls = %d,%d,%d", e1.calls.Load(), e2.calls.Load(), e3.calls.Load())
	}
}

func TestRoute_AggregatesFailuresInOrder(t *testing.T) {
	r := newRouter(t,
		[]provider.Endpoint{bad("groq", "status 429"), bad("hf", "status 503")},
		[]provider.Endpoint{ok("p", "x")},
	)
	_, err := r.Route(context.Background(), TierFast, hello)

	var agg *AllProvidersFailedError
	if !errors.As(err, &agg) {
		t.Fatalf("err=%T %v", err, err)
	}
	if len(agg.Failures) != 2 || agg.Tier != TierFast {
		t.Fatalf("agg=%+v", agg)
	}
	msg := err.Error()
	i, j := strings.Index(msg, "groq: status 429"), strings.Index(msg, "hf: status 503")
	if i < 0 || j < 0 || i > j {
		t.Fatalf("message lacks ordered reasons: %q", msg)
	}
}

func TestRoute_TierMapping(t *testing.T) {
	r := newRouter(t, []provider.Endpoint{ok("f", "fast")}, []provider.Endpoint{ok("p", "powerful")})
	cases := map[string]string{
		"fast":     "fast",
		"FAST":     "fast",
		"powerful": "powerful",
		"":         "powerful",
		"turbo":    "powerful",
	}
	for in, want := range cases {
		got, err := r.Route(context.Background(), ParseTier(in), hello)
		if err != nil {
			t.Fatalf("Route(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Route(%q)=%q, want %q", in, got, want)
		}
	}
	if got, _ := r.Route(context.Background(), Tier("bogus"), hello); got != "powerful" {
		t.Fatalf("raw unknown tier routed to %q", got)
	}
}

func TestRoute_EmptyTextIsAFailure(t *testing.T) {
	blank := ok("blank", "   ")
	r := newRouter(t, []provider.Endpoint{blank, ok("next", "text")}, []provider.Endpoint{ok("p", "x")})
	got, err := r.Route(context.Background(), TierFast, hello)
	if err != nil || got != "text" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestRoute_NoMessages(t *testing.T) {
	r := newRouter(t, []provider.Endpoint{ok("f", "x")}, []provider.Endpoint{ok("p", "x")})
	if _, err := r.Route(context.Background(), TierFast, nil); !errors.Is(err, ErrNoMessages) {
		t.Fatalf("err=%v", err)
	}
}

func TestRoute_CanceledContextStopsCascade(t *testing.T) {
	e := ok("f", "x")
	r := newRouter(t, []provider.Endpoint{e}, []provider.Endpoint{ok("p", "x")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Route(ctx, TierFast, hello); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if e.calls.Load() != 0 {
		t.Fatalf("endpoint called after cancel")
	}
}

func TestNew_RejectsEmptyTier(t *testing.T) {
	_, err := New(map[Tier][]provider.Endpoint{TierFast: {ok("f", "x")}}, nil)
	if !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("err=%v", err)
	}
}

func TestNewFromConfig_MissingCredentialFailsFast(t *testing.T) {
	tiers := config.TiersConfig{
		Fast: []config.EndpointConfig{
			{Name: "groq", Type: config.EndpointOpenAI, Model: "m", APIKeyEnv: "COURSEFORGE_TEST_UNSET_KEY"},
			{Name: "local", Type: config.EndpointMock},
		},
		Powerful: []config.EndpointConfig{{Name: "mock", Type: config.EndpointMock}},
	}
	r, err := NewFromConfig(context.Background(), tiers, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if names := r.Endpoints(TierFast); len(names) != 2 || names[0] != "groq" {
		t.Fatalf("endpoints=%v", names)
	}
	got, err := r.Route(context.Background(), TierFast, hello)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got != "mock: hello" {
		t.Fatalf("got=%q", got)
	}
}
