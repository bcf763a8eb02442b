// Package client calls a remote chat endpoint. A Client satisfies the same
// Route contract as the in-process router, so generation can run against a
// separately deployed gateway.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/courseforge/internal/llm/provider"
	"github.com/yungbote/courseforge/internal/llm/router"
)

const chatPath = "/api/chat"

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int

	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *resty.Client
}

type chatRequest struct {
	Messages []provider.Message `json:"messages"`
	Tier     string             `json:"tier"`
}

type chatResponse struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(maxRetries).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryable)
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		rc.SetAuthToken(key)
	}
	return &Client{baseURL: baseURL, http: rc}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Route posts messages to the remote chat endpoint. A 500 carries the
// remote router's aggregated failure and is returned as a RemoteError.
func (c *Client) Route(ctx context.Context, tier router.Tier, messages []provider.Message) (string, error) {
	if len(messages) == 0 {
		return "", router.ErrNoMessages
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Messages: messages, Tier: router.ParseTier(string(tier)).String()}).
		Post(chatPath)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	var out chatResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.IsError() {
		return "", parseRemoteError(resp.StatusCode(), resp.Body(), out.Error)
	}
	if decodeErr != nil {
		return "", &RemoteError{StatusCode: resp.StatusCode(), Message: "invalid response body", Body: strings.TrimSpace(string(resp.Body()))}
	}
	return out.Content, nil
}

// retryable covers transport failures and gateway-level unavailability. A
// plain 500 already means every remote endpoint failed.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	switch resp.StatusCode() {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}
