// Package push is the HTTP client of the push delivery gateway.
package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/snowparadise/reactor/internal/model"
)

// MulticastPath is the gateway endpoint that fans one payload out to many tokens.
const MulticastPath = "/v1/messages:multicast"

// ErrMalformedResponse is returned when the gateway answer cannot be paired
// with the request tokens.
var ErrMalformedResponse = errors.New("malformed gateway response")

// Config holds gateway client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client sends multicast messages to the gateway.
type Client struct {
	http *resty.Client
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: c}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendMulticast delivers msg and returns one verdict per token, in order.
// A transport error or a non-2xx status fails the whole batch.
func (c *Client) SendMulticast(ctx context.Context, msg *model.MulticastMessage) (*model.BatchResponse, error) {
	var (
		out     model.BatchResponse
		failure errorBody
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&out).
		SetError(&failure).
		Post(MulticastPath)
	if err != nil {
		return nil, fmt.Errorf("failed to call push gateway: %w", err)
	}
	if resp.IsError() {
		if failure.Error.Code != "" {
			return nil, fmt.Errorf("push gateway returned %d: %s: %s",
				resp.StatusCode(), failure.Error.Code, failure.Error.Message)
		}
		return nil, fmt.Errorf("push gateway returned %d", resp.StatusCode())
	}
	if len(out.Responses) != len(msg.Tokens) {
		return nil, fmt.Errorf("%w: %d verdicts for %d tokens",
			ErrMalformedResponse, len(out.Responses), len(msg.Tokens))
	}
	return &out, nil
}
