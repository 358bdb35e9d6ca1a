package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/pkg/config"
	"github.com/tilldesk/register-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(t *testing.T, cfg config.WarehouseConfig, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(cfg, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestFetchBuildsRequest(t *testing.T) {
	idA := uuid.New()
	idB := uuid.New()
	respBody := `{"data":[` +
		`{"product_id":"` + idA.String() + `","quantity":7,"expiry_status":"valid"},` +
		`{"product_id":"` + idB.String() + `","quantity":3,"expiry_status":"near_expiry"}` +
		`],"total":42}`

	var capturedURL string
	var capturedHeaders http.Header
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client := testClient(t, config.WarehouseConfig{
		BaseURL:  "http://warehouse.test/api",
		APIToken: "secret-token",
	}, rt)

	page, err := client.Fetch(context.Background(), FetchParams{Search: "milk", Limit: 50, Offset: 100})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if capturedURL != "http://warehouse.test/api/stock?limit=50&offset=100&search=milk" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer secret-token" {
		t.Fatalf("authorization header missing, got %q", capturedHeaders.Get("Authorization"))
	}
	if page.Total != 42 {
		t.Fatalf("unexpected total %d", page.Total)
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if page.Records[0].ProductID != idA || page.Records[0].Quantity != 7 {
		t.Fatalf("unexpected first record %+v", page.Records[0])
	}
	if page.Records[1].Expiry != enums.ExpiryNearExpiry {
		t.Fatalf("unexpected expiry %v", page.Records[1].Expiry)
	}
}

func TestFetchDefaultsLimitToPageSize(t *testing.T) {
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, `{"data":[],"total":0}`), nil
	})

	client := testClient(t, config.WarehouseConfig{
		BaseURL:       "http://warehouse.test",
		StockPageSize: 25,
	}, rt)

	if _, err := client.Fetch(context.Background(), FetchParams{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if capturedURL != "http://warehouse.test/stock?limit=25&offset=0&search=" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
}

func TestFetchUnknownExpiryFailsClosed(t *testing.T) {
	id := uuid.New()
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"data":[{"product_id":"`+id.String()+`","quantity":4,"expiry_status":"mystery"}],"total":1}`), nil
	})

	client := testClient(t, config.WarehouseConfig{BaseURL: "http://warehouse.test"}, rt)
	page, err := client.Fetch(context.Background(), FetchParams{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(page.Records))
	}
	if page.Records[0].Expiry != enums.ExpiryExpired {
		t.Fatalf("expected expired, got %v", page.Records[0].Expiry)
	}
}

func TestFetchSkipsMalformedProductID(t *testing.T) {
	id := uuid.New()
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"data":[{"product_id":"not-a-uuid","quantity":4,"expiry_status":"valid"},`+
				`{"product_id":"`+id.String()+`","quantity":2,"expiry_status":"valid"}],"total":2}`), nil
	})

	client := testClient(t, config.WarehouseConfig{BaseURL: "http://warehouse.test"}, rt)
	page, err := client.Fetch(context.Background(), FetchParams{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Records) != 1 || page.Records[0].ProductID != id {
		t.Fatalf("expected malformed row skipped, got %+v", page.Records)
	}
}

func TestFetchNon2xxReturnsCatalogUnavailable(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream down`), nil
	})

	client := testClient(t, config.WarehouseConfig{BaseURL: "http://warehouse.test"}, rt)
	_, err := client.Fetch(context.Background(), FetchParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCatalogUnavailable {
		t.Fatalf("expected catalog unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "stock request failed") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFetchTransportErrorReturnsCatalogUnavailable(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	client := testClient(t, config.WarehouseConfig{BaseURL: "http://warehouse.test"}, rt)
	_, err := client.Fetch(context.Background(), FetchParams{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCatalogUnavailable {
		t.Fatalf("expected catalog unavailable, got %v", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.WarehouseConfig{}); err == nil {
		t.Fatal("expected error without base URL")
	}
}
