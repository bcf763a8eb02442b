package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
)

func TestRoutePostsChatRequest(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer k" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":"hello"}`))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/", APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Route(context.Background(), router.Tier("weird"), []provider.Message{provider.User("hi")})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if out != "hello" {
		t.Fatalf("content = %q", out)
	}
	if got.Tier != "powerful" || len(got.Messages) != 1 || got.Messages[0].Role != provider.RoleUser {
		t.Fatalf("request = %+v", got)
	}
}

func TestRouteReturnsRemoteFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"all fast providers failed: groq: boom"}`))
	}))
	defer srv.Close()

	c, _ := New(Options{BaseURL: srv.URL, MaxRetries: 3})
	_, err := c.Route(context.Background(), router.TierFast, []provider.Message{provider.User("hi")})
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %T %v", err, err)
	}
	if re.StatusCode != 500 || !strings.Contains(re.Message, "groq: boom") {
		t.Fatalf("remote error = %+v", re)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, a 500 must not be retried", n)
	}
}

func TestRouteRetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"content":"second"}`))
	}))
	defer srv.Close()

	c, _ := New(Options{BaseURL: srv.URL, MaxRetries: 2})
	out, err := c.Route(context.Background(), router.TierFast, []provider.Message{provider.User("hi")})
	if err != nil || out != "second" {
		t.Fatalf("Route = %q, %v", out, err)
	}
}

func TestRouteValidation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
	c, _ := New(Options{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.Route(context.Background(), router.TierFast, nil); !errors.Is(err, router.ErrNoMessages) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRemoteErrorEnvelope(t *testing.T) {
	err := parseRemoteError(400, []byte(`{"error":{"message":"bad input","code":"invalid"}}`), "")
	var re *RemoteError
	if !errors.As(err, &re) || re.Message != "bad input" {
		t.Fatalf("err = %v", err)
	}
	if got := (&RemoteError{StatusCode: 502}).Error(); got != "remote chat: status=502 message=Bad Gateway" {
		t.Fatalf("Error() = %q", got)
	}
}
