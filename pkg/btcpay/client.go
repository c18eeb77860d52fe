package btcpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// SpeedPolicyHighSpeed confirms invoices on a single unconfirmed payment.
const SpeedPolicyHighSpeed = "HighSpeed"

var (
	errBaseURLRequired = errors.New("btcpay base url is required")
	errStoreIDRequired = errors.New("btcpay store id is required")
	errTokenRequired   = errors.New("btcpay api token is required")
)

// Client talks to a BTCPay Server store over the Greenfield API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	storeID    string
	token      string
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

// NewClient builds the BTCPay client for a single store.
func NewClient(baseURL, storeID, token string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedStore := strings.TrimSpace(storeID)
	if trimmedStore == "" {
		return nil, errStoreIDRequired
	}
	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmedURL, "/"),
		storeID:    trimmedStore,
		token:      trimmedToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return client, nil
}

// Invoice is the subset of the Greenfield invoice payload this service reads.
type Invoice struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	CreatedTime    int64             `json:"createdTime"`
	ExpirationTime int64             `json:"expirationTime"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	CheckoutLink   string            `json:"checkoutLink,omitempty"`
}

// PaymentMethod describes one way an invoice can be paid.
type PaymentMethod struct {
	CryptoCode string          `json:"cryptoCode"`
	Rate       string          `json:"rate"`
	Due        string          `json:"due"`
	Amount     string          `json:"amount"`
	TotalPaid  string          `json:"totalPaid"`
	Payments   json.RawMessage `json:"payments"`
}

// CreateInvoiceRequest is the payload sent when issuing a new invoice.
type CreateInvoiceRequest struct {
	Amount   string          `json:"amount"`
	Currency string          `json:"currency"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Checkout InvoiceCheckout `json:"checkout"`
}

// InvoiceCheckout carries the checkout policy section of an invoice.
type InvoiceCheckout struct {
	SpeedPolicy    string   `json:"speedPolicy"`
	PaymentMethods []string `json:"paymentMethods,omitempty"`
}

// ListInvoices returns the store's invoices filtered by order id.
func (c *Client) ListInvoices(ctx context.Context, orderID string) ([]Invoice, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "btcpay client not configured")
	}

	endpoint := c.storeURL("invoices")
	if strings.TrimSpace(orderID) != "" {
		endpoint += "?orderId=" + url.QueryEscape(orderID)
	}

	var invoices []Invoice
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// CreateInvoice issues a new invoice on the store.
func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "btcpay client not configured")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice amount is required")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice currency is required")
	}

	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, c.storeURL("invoices"), req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetInvoice fetches a single invoice by provider id.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "btcpay client not configured")
	}
	trimmed := strings.TrimSpace(invoiceID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	var invoice Invoice
	if err := c.do(ctx, http.MethodGet, c.storeURL("invoices/"+url.PathEscape(trimmed)), nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetPaymentMethods fetches the payment methods attached to an invoice.
func (c *Client) GetPaymentMethods(ctx context.Context, invoiceID string) ([]PaymentMethod, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "btcpay client not configured")
	}
	trimmed := strings.TrimSpace(invoiceID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	var methods []PaymentMethod
	if err := c.do(ctx, http.MethodGet, c.storeURL("invoices/"+url.PathEscape(trimmed)+"/payment-methods"), nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal btcpay request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build btcpay request")
	}
	httpReq.Header.Set("Authorization", "token "+c.token)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute btcpay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "btcpay request failed")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode btcpay response")
	}
	return nil
}

func (c *Client) storeURL(path string) string {
	return fmt.Sprintf("%s/api/v1/stores/%s/%s", c.baseURL, url.PathEscape(c.storeID), strings.TrimLeft(path, "/"))
}
