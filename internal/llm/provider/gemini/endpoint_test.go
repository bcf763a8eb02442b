package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/llm/provider"
)

func TestNew_MissingCredential(t *testing.T) {
	_, err := New(context.Background(), config.EndpointConfig{Name: "google", Model: "gemini-2.0-flash", APIKeyEnv: "COURSEFORGE_TEST_UNSET_KEY"})
	if !errors.Is(err, provider.ErrMissingCredential) {
		t.Fatalf("err=%v", err)
	}
}

func TestToContentsMapsRoles(t *testing.T) {
	out := toContents([]provider.Message{
		provider.User("q"),
		provider.Assistant("a"),
	})
	if len(out) != 2 {
		t.Fatalf("len=%d", len(out))
	}
	if out[0].Role != "user" || out[1].Role != "model" {
		t.Fatalf("roles=%s,%s", out[0].Role, out[1].Role)
	}
	if out[1].Parts[0].Text != "a" {
		t.Fatalf("text=%q", out[1].Parts[0].Text)
	}
}
