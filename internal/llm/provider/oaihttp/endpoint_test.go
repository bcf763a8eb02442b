package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func testConfig() config.EndpointConfig {
	return config.EndpointConfig{
		Name:        "local",
		Type:        config.EndpointOAIHTTP,
		BaseURL:     "http://upstream/v1",
		Model:       "upstream-model",
		APIKey:      "k-123",
		Temperature: 0.3,
		MaxTokens:   256,
		Timeout:     config.Duration{Duration: 2 * time.Second},
		Headers:     map[string]string{"X-Title": "CourseForge"},
	}
}

func TestGenerate(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if got := req.Header.Get("Authorization"); got != "Bearer k-123" {
				t.Fatalf("authorization=%q", got)
			}
			if got := req.Header.Get("X-Title"); got != "CourseForge" {
				t.Fatalf("x-title=%q", got)
			}

			var in chatCompletionRequest
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				t.Fatalf("decode req: %v", err)
			}
			if in.Model != "upstream-model" || in.MaxTokens != 256 {
				t.Fatalf("request=%+v", in)
			}
			if len(in.Messages) != 2 || in.Messages[0].Role != "system" {
				t.Fatalf("messages=%+v", in.Messages)
			}

			var out chatCompletionResponse
			out.Choices = make([]chatChoice, 1)
			out.Choices[0].Message.Content = "hello"
			return jsonResponse(http.StatusOK, out), nil
		}),
	}

	e, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	got, err := e.Generate(context.Background(), []provider.Message{
		provider.System("sys"),
		provider.User("user"),
		provider.User("  "),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got=%q", got)
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader(`{"error":"rate limited"}`)),
			}, nil
		}),
	}
	e, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	_, err = e.Generate(context.Background(), []provider.Message{provider.User("hi")})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error text lost body: %q", err.Error())
	}
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, chatCompletionResponse{}), nil
		}),
	}
	e, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	if _, err := e.Generate(context.Background(), []provider.Message{provider.User("hi")}); !errors.Is(err, provider.ErrEmptyCompletion) {
		t.Fatalf("err=%v", err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(config.EndpointConfig{Name: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}
