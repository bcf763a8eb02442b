// Package provider defines the contract every text-generation backend
// satisfies and the per-endpoint error the router recovers from.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a wire role onto Role. Unknown roles are rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSystem:
		return RoleSystem, nil
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	}
	return "", fmt.Errorf("unknown message role %q", s)
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Endpoint is one callable backend. Implementations own their transport and
// credentials and hold no state the router depends on.
type Endpoint interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (string, error)
}

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrEmptyCompletion   = errors.New("empty completion")
)

// CallError is a single endpoint invocation failure.
type CallError struct {
	Endpoint string
	Err      error
}

func (e *CallError) Error() string {
	if e == nil {
		return "provider call failed"
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// SplitSystem pulls every system message out of msgs, joining them with a
// blank line, and returns the remaining conversation turns in order.
func SplitSystem(msgs []Message) (string, []Message) {
	var sys []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if m.Role == RoleSystem {
			sys = append(sys, content)
			continue
		}
		rest = append(rest, Message{Role: m.Role, Content: content})
	}
	return strings.Join(sys, "\n\n"), rest
}

type unavailable struct {
	name string
	err  error
}

// Unavailable returns an endpoint whose every call fails immediately with err.
// The router uses it for endpoints whose credential is absent.
func Unavailable(name string, err error) Endpoint {
	return &unavailable{name: name, err: err}
}

func (u *unavailable) Name() string { return u.name }

func (u *unavailable) Generate(context.Context, []Message) (string, error) {
	return "", u.err
}

// JSONShapeMarker precedes the example document in prompts that expect a
// structured answer. Offline endpoints echo what follows it.
const JSONShapeMarker = "Respond with JSON shaped like:"
