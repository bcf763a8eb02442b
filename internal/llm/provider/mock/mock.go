// Package mock is a deterministic endpoint for offline runs and tests.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/yungbote/courseforge/internal/llm/provider"
)

type Endpoint struct {
	name  string
	calls atomic.Int64
}

func New(name string) *Endpoint {
	if name == "" {
		name = "mock"
	}
	return &Endpoint{name: name}
}

func (e *Endpoint) Name() string { return e.name }

// Calls reports how many times Generate ran.
func (e *Endpoint) Calls() int64 { return e.calls.Load() }

// Generate echoes the example document for structured prompts and
// "mock: <last user message>" otherwise.
func (e *Endpoint) Generate(ctx context.Context, messages []provider.Message) (string, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var user string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == provider.RoleUser {
			user = messages[i].Content
			break
		}
	}
	if idx := strings.LastIndex(user, provider.JSONShapeMarker); idx >= 0 {
		if shape := strings.TrimSpace(user[idx+len(provider.JSONShapeMarker):]); shape != "" {
			return shape, nil
		}
	}
	if strings.TrimSpace(user) == "" {
		return "mock: ok", nil
	}
	return fmt.Sprintf("mock: %s", user), nil
}
