package openaisdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk-test" {
			t.Errorf("authorization=%q", got)
		}
		if got := r.Header.Get("X-Title"); got != "CourseForge" {
			t.Errorf("x-title=%q", got)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "llama-3.1-8b-instant" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("body=%+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"llama-3.1-8b-instant",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"generated"}}]}`))
	}))
	defer srv.Close()

	e, err := New(config.EndpointConfig{
		Name:    "groq",
		BaseURL: srv.URL + "/openai/v1",
		Model:   "llama-3.1-8b-instant",
		APIKey:  "gsk-test",
		Headers: map[string]string{"X-Title": "CourseForge"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := e.Generate(context.Background(), []provider.Message{
		provider.System("sys"),
		provider.User("hello"),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "generated" {
		t.Fatalf("got=%q", got)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	defer srv.Close()

	e, err := New(config.EndpointConfig{Name: "groq", BaseURL: srv.URL, Model: "m", APIKey: "bad"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Generate(context.Background(), []provider.Message{provider.User("hi")}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_MissingCredential(t *testing.T) {
	_, err := New(config.EndpointConfig{Name: "groq", Model: "m", APIKeyEnv: "COURSEFORGE_TEST_UNSET_KEY"})
	if !errors.Is(err, provider.ErrMissingCredential) {
		t.Fatalf("err=%v", err)
	}
}
