package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type RemoteError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *RemoteError) Error() string {
	if e == nil {
		return "remote chat error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "remote chat error"
	}
	return fmt.Sprintf("remote chat: status=%d message=%s", e.StatusCode, msg)
}

// parseRemoteError understands the flat {"error": "..."} body of the chat
// endpoint and the {"error": {"message": ...}} envelope of other gateways.
func parseRemoteError(status int, raw []byte, flat string) error {
	body := strings.TrimSpace(string(raw))
	if msg := strings.TrimSpace(flat); msg != "" {
		return &RemoteError{StatusCode: status, Message: msg, Body: body}
	}
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && strings.TrimSpace(env.Error.Message) != "" {
		return &RemoteError{StatusCode: status, Message: strings.TrimSpace(env.Error.Message), Body: body}
	}
	return &RemoteError{StatusCode: status, Body: body}
}
