// Package catalog reads the warehouse stock feed the register prices
// availability from. The warehouse stays authoritative; this client only
// pages the feed and normalizes records.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/pkg/config"
	"github.com/tilldesk/register-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
)

const (
	defaultPageSize           = 100
	errorBodyReadLimit  int64 = 1024
	defaultFetchTimeout       = 10 * time.Second
)

// FetchParams select one stock page.
type FetchParams struct {
	Search string
	Limit  int
	Offset int
}

// StockRecord is one batch-level stock row from the warehouse.
type StockRecord struct {
	ProductID uuid.UUID
	Quantity  int
	Expiry    enums.ExpiryStatus
}

// StockPage is one page of the feed plus the reported total row count.
type StockPage struct {
	Records []StockRecord
	Total   int
}

// Client calls the warehouse stock endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
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

// NewClient builds the stock feed client from warehouse config.
func NewClient(cfg config.WarehouseConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	pageSize := cfg.StockPageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(cfg.APIToken),
		pageSize:   pageSize,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// PageSize reports the page size Fetch uses when params leave Limit unset.
func (c *Client) PageSize() int {
	if c == nil {
		return defaultPageSize
	}
	return c.pageSize
}

// Fetch retrieves one stock page. Any transport or non-2xx failure surfaces
// as CodeCatalogUnavailable so callers degrade instead of guessing.
func (c *Client) Fetch(ctx context.Context, params FetchParams) (*StockPage, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCatalogUnavailable, "catalog client not configured")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	query := url.Values{}
	query.Set("search", params.Search)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	endpoint := fmt.Sprintf("%s/stock?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, "build stock request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, "execute stock request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeCatalogUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"stock request failed",
		)
	}

	var apiResp struct {
		Data []struct {
			ProductID    string `json:"product_id"`
			Quantity     int    `json:"quantity"`
			ExpiryStatus string `json:"expiry_status"`
		} `json:"data"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, "decode stock response")
	}

	records := make([]StockRecord, 0, len(apiResp.Data))
	for _, row := range apiResp.Data {
		productID, err := uuid.Parse(strings.TrimSpace(row.ProductID))
		if err != nil {
			// A row without a usable id contributes no stock.
			continue
		}
		expiry, err := enums.ParseExpiryStatus(strings.TrimSpace(row.ExpiryStatus))
		if err != nil {
			// Unknown shelf-life states are never sellable.
			expiry = enums.ExpiryExpired
		}
		records = append(records, StockRecord{
			ProductID: productID,
			Quantity:  row.Quantity,
			Expiry:    expiry,
		})
	}

	return &StockPage{Records: records, Total: apiResp.Total}, nil
}
