package centrifugo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
)

const (
	defaultAPIURL               = "http://centrifugo:8000/api"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("centrifugo api key is required")

// Client posts server-side commands to the Centrifugo HTTP API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIURL overrides the configured API endpoint.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(apiURL)
		if trimmed != "" {
			c.apiURL = trimmed
		}
	}
}

// NewClient builds the Centrifugo client given a server API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if client.apiURL == "" {
		client.apiURL = defaultAPIURL
	}

	return client, nil
}

type command struct {
	Method string        `json:"method"`
	Params commandParams `json:"params"`
}

type commandParams struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Publish pushes data onto the named channel.
func (c *Client) Publish(ctx context.Context, channel string, data any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "centrifugo client not configured")
	}
	if strings.TrimSpace(channel) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "channel is required")
	}

	payload, err := json.Marshal(command{
		Method: "publish",
		Params: commandParams{Channel: channel, Data: data},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal publish command")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build publish request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "apikey "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute publish request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "publish request failed")
	}

	var apiResp struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode publish response")
	}
	if apiResp.Error != nil {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("publish rejected: %d %s", apiResp.Error.Code, apiResp.Error.Message))
	}

	return nil
}

// PersonalChannel builds the user-scoped channel name clients subscribe to.
func PersonalChannel(namespace, username string) string {
	return fmt.Sprintf("%s#%s", namespace, username)
}
