// Package orders submits checkouts to the warehouse order endpoint. The
// endpoint is atomic: it either commits the whole order or rejects it, so
// the client never retries on its own.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/register-backend/pkg/config"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
)

const (
	defaultSubmitTimeout       = 10 * time.Second
	errorBodyReadLimit   int64 = 2048
)

// OrderItem is one product/quantity pair in a submission.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Order is a checkout submission.
type Order struct {
	CustomerName string
	GrandTotal   decimal.Decimal
	Items        []OrderItem
}

// Receipt is the order as the warehouse committed it.
type Receipt struct {
	ID           uuid.UUID       `json:"id"`
	CustomerName string          `json:"customer_name"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Items        []OrderItem     `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Client posts checkouts to the warehouse.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// NewClient builds the order submission client from warehouse config.
func NewClient(cfg config.WarehouseConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(cfg.APIToken),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Submit posts the order. Rejections carry the warehouse's own error text so
// the cashier sees exactly what the backend said.
func (c *Client) Submit(ctx context.Context, order Order) (*Receipt, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutFailed, "order client not configured")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "order has no items")
	}

	// grand_total goes over the wire as a bare JSON number carrying the
	// decimal's exact digits, never a float.
	payload := struct {
		CustomerName string      `json:"customer_name"`
		GrandTotal   json.Number `json:"grand_total"`
		Items        []OrderItem `json:"items"`
	}{
		CustomerName: order.CustomerName,
		GrandTotal:   json.Number(order.GrandTotal.String()),
		Items:        order.Items,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "marshal order")
	}

	endpoint := fmt.Sprintf("%s/orders/checkout", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "build checkout request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "checkout request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutFailed, rejectionMessage(resp))
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCheckoutFailed, err, "decode receipt")
	}
	return &receipt, nil
}

// rejectionMessage pulls the warehouse's error text out of a failure body.
// The endpoint uses either {"error": "..."} or {"message": "..."}.
func rejectionMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return fmt.Sprintf("checkout rejected with status %d", resp.StatusCode)
}
