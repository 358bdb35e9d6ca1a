package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/register-backend/api/middleware"
	"github.com/tilldesk/register-backend/internal/catalog"
	"github.com/tilldesk/register-backend/internal/ledger"
	"github.com/tilldesk/register-backend/internal/orders"
	"github.com/tilldesk/register-backend/pkg/enums"
	"github.com/tilldesk/register-backend/pkg/logger"
)

const testRegisterID = "front-1"

type testCartStore struct {
	loaded  []ledger.SavedCart
	loadErr error
	saveErr error
}

func (s *testCartStore) Load(ctx context.Context) ([]ledger.SavedCart, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.loaded, nil
}

func (s *testCartStore) Save(ctx context.Context, carts []ledger.SavedCart) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	snapshot := make([]ledger.SavedCart, len(carts))
	copy(snapshot, carts)
	s.loaded = snapshot
	return nil
}

type testStockFeed struct {
	records []catalog.StockRecord
	err     error
	last    catalog.FetchParams
}

func (s *testStockFeed) Fetch(ctx context.Context, params catalog.FetchParams) (*catalog.StockPage, error) {
	s.last = params
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.StockPage{Records: s.records, Total: len(s.records)}, nil
}

type testOrderAPI struct {
	receipt *orders.Receipt
	err     error
	last    orders.Order
}

func (s *testOrderAPI) Submit(ctx context.Context, order orders.Order) (*orders.Receipt, error) {
	s.last = order
	if s.err != nil {
		return nil, s.err
	}
	if s.receipt != nil {
		return s.receipt, nil
	}
	return &orders.Receipt{
		ID:           uuid.New(),
		CustomerName: order.CustomerName,
		GrandTotal:   order.GrandTotal,
		Items:        order.Items,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

type stubSessions struct {
	led *ledger.Ledger
	err error
}

func (s stubSessions) Acquire(ctx context.Context, registerID string) (*ledger.Ledger, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.led, nil
}

// newTestSessions builds a refreshed ledger over stub collaborators and
// wraps it in a session manager stand-in.
func newTestSessions(t *testing.T, records ...catalog.StockRecord) (stubSessions, *testCartStore, *testStockFeed, *testOrderAPI) {
	t.Helper()

	store := &testCartStore{}
	feed := &testStockFeed{records: records}
	orderAPI := &testOrderAPI{}

	led, err := ledger.New(ledger.Params{
		RegisterID: testRegisterID,
		Store:      store,
		Catalog:    feed,
		Orders:     orderAPI,
		Logger:     logger.New(logger.Options{ServiceName: "controllers-test"}),
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if err := led.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh ledger: %v", err)
	}

	return stubSessions{led: led}, store, feed, orderAPI
}

func sellable(productID uuid.UUID, quantity int) catalog.StockRecord {
	return catalog.StockRecord{ProductID: productID, Quantity: quantity, Expiry: enums.ExpiryValid}
}

func registerRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithRegisterID(req.Context(), testRegisterID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func mustAdd(t *testing.T, led *ledger.Ledger, productID uuid.UUID, price string) {
	t.Helper()
	err := led.AddLine(ledger.AddLineInput{
		ProductID: productID,
		SKU:       "sku-" + productID.String()[:8],
		Name:      "Test Product",
		UnitPrice: decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
}
