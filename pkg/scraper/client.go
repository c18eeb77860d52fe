package scraper

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
	defaultBaseURL              = "http://parser:3000"
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("scraper base url is required")

// Client calls the headless parser service that scrapes retailer product pages.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// NewClient builds the parser client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return client, nil
}

// Product is the raw payload the parser returns for a product page.
type Product struct {
	ProductName string                      `json:"productName"`
	Brand       string                      `json:"brand"`
	Price       string                      `json:"price"`
	ImageURL    string                      `json:"imageurl"`
	Domain      string                      `json:"domain"`
	Options     map[string][]map[string]any `json:"options"`
}

// Parse scrapes the provided product URL.
func (c *Client) Parse(ctx context.Context, productURL string) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scraper client not configured")
	}
	if strings.TrimSpace(productURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product url is required")
	}

	payload, err := json.Marshal(map[string]string{"url": productURL})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal parse request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build parse request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute parse request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "parse request failed")
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode parse response")
	}

	return &product, nil
}
