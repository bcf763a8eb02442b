// Package modelparse extracts JSON documents from free-form model output.
//
// Strategies run in order and the first that yields valid JSON wins:
//
//  1. the contents of a fenced code block
//  2. the whole trimmed text, when it starts with '{' or '['
//  3. the slice from the first '{' to the last '}'
//  4. each candidate above again, after mechanical repair
package modelparse

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MalformedOutputError carries the raw model text that no strategy could parse.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed model output: %v (raw=%q)", e.Err, raw)
	}
	return fmt.Sprintf("malformed model output (raw=%q)", raw)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_-]+)?\\s*\\n?(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Parse returns the first JSON value recovered from raw, decoded into
// generic Go values (maps, slices, float64, string, bool, nil).
func Parse(raw string) (any, error) {
	var v any
	if err := Decode(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode is Parse into a caller-supplied destination.
func Decode(raw string, dst any) error {
	cands := candidates(raw)
	var lastErr error
	for _, c := range cands {
		if lastErr = json.Unmarshal([]byte(c), dst); lastErr == nil {
			return nil
		}
	}
	for _, c := range cands {
		fixed := Repair(c)
		if fixed == c {
			continue
		}
		if lastErr = json.Unmarshal([]byte(fixed), dst); lastErr == nil {
			return nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no JSON found")
	}
	return &MalformedOutputError{Raw: raw, Err: lastErr}
}

func candidates(raw string) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}

	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		add(m[1])
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		add(trimmed)
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		add(raw[start : end+1])
	}
	return out
}

// Repair strips trailing commas before closing brackets and collapses
// embedded newlines into spaces.
func Repair(s string) string {
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}
