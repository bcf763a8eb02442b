package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/courseforge/internal/llm/provider"
)

var (
	ErrNoMessages  = errors.New("router: at least one message is required")
	ErrUnknownTier = errors.New("router: tier has no endpoints")
)

// AllProvidersFailedError reports every endpoint failure of one tier, in
// attempt order.
type AllProvidersFailedError struct {
	Tier     Tier
	Failures []*provider.CallError
}

func (e *AllProvidersFailedError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, f.Error())
	}
	return fmt.Sprintf("all %s providers failed: %s", e.Tier, strings.Join(reasons, " | "))
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *AllProvidersFailedError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}
