package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/register-backend/internal/catalog"
	"github.com/tilldesk/register-backend/internal/orders"
	"github.com/tilldesk/register-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Params{})
	if err == nil {
		t.Fatal("expected error for empty params")
	}

	_, err = New(Params{
		RegisterID: "till-1",
		Store:      &stubStore{},
		Catalog:    &stubCatalog{},
		Orders:     &stubOrders{},
	})
	if err == nil {
		t.Fatal("expected error for missing logger")
	}
}

func TestAddLineMergesSameProduct(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 5))

	mustAddLine(t, l, lineInput(productID, "1.25"))
	mustAddLine(t, l, lineInput(productID, "1.25"))

	lines := l.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", lines[0].Quantity)
	}
	if l.Available(productID) != 3 {
		t.Fatalf("expected 3 available, got %d", l.Available(productID))
	}
}

func TestAddLineStopsAtStock(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 10))

	for i := 0; i < 10; i++ {
		mustAddLine(t, l, lineInput(productID, "2.00"))
	}

	err := l.AddLine(lineInput(productID, "2.00"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	details, ok := typed.Details().(InsufficientStockDetails)
	if !ok {
		t.Fatalf("expected stock details, got %T", typed.Details())
	}
	if details.Available != 0 || details.Requested != 11 {
		t.Fatalf("expected available 0 requested 11, got %+v", details)
	}

	lines := l.Lines()
	if len(lines) != 1 || lines[0].Quantity != 10 {
		t.Fatalf("rejected add must leave the cart untouched, got %+v", lines)
	}
}

func TestAddLineValidatesInput(t *testing.T) {
	l, _, _, _ := newTestLedger(t)

	err := l.AddLine(AddLineInput{UnitPrice: decimal.NewFromInt(1)})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing product id, got %v", err)
	}

	err = l.AddLine(AddLineInput{ProductID: uuid.New(), UnitPrice: decimal.NewFromInt(-1)})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestAdjustQuantityIncreaseWithinStock(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 5))
	mustAddLine(t, l, lineInput(productID, "1.00"))

	if err := l.AdjustQuantity(productID, 4); err != nil {
		t.Fatalf("adjust quantity: %v", err)
	}
	if got := l.Lines()[0].Quantity; got != 5 {
		t.Fatalf("expected quantity 5, got %d", got)
	}
	if l.Available(productID) != 0 {
		t.Fatalf("expected 0 available, got %d", l.Available(productID))
	}
}

func TestAdjustQuantityRejectsOverStock(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 5))
	mustAddLine(t, l, lineInput(productID, "1.00"))

	err := l.AdjustQuantity(productID, 5)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	details, ok := typed.Details().(InsufficientStockDetails)
	if !ok || details.Available != 4 || details.Requested != 6 {
		t.Fatalf("expected available 4 requested 6, got %+v", typed.Details())
	}
	if got := l.Lines()[0].Quantity; got != 1 {
		t.Fatalf("rejected adjust must leave quantity at 1, got %d", got)
	}
}

func TestAdjustQuantityToZeroRemovesLine(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 5))
	mustAddLine(t, l, lineInput(productID, "1.00"))
	mustAddLine(t, l, lineInput(productID, "1.00"))

	if err := l.AdjustQuantity(productID, -2); err != nil {
		t.Fatalf("adjust quantity: %v", err)
	}
	if got := l.Lines(); len(got) != 0 {
		t.Fatalf("expected empty cart, got %+v", got)
	}
	if l.Available(productID) != 5 {
		t.Fatalf("expected stock released, got %d available", l.Available(productID))
	}
}

func TestAdjustQuantityMissingLine(t *testing.T) {
	l, _, _, _ := newTestLedger(t)

	err := l.AdjustQuantity(uuid.New(), 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveLine(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	first := uuid.New()
	second := uuid.New()
	seedStock(t, l, cat, stockOf(first, 5), stockOf(second, 5))
	mustAddLine(t, l, lineInput(first, "1.00"))
	mustAddLine(t, l, lineInput(second, "2.00"))

	l.RemoveLine(first)
	l.RemoveLine(uuid.New())

	lines := l.Lines()
	if len(lines) != 1 || lines[0].ProductID != second {
		t.Fatalf("expected only the second line, got %+v", lines)
	}
}

func TestNewCartClearsRegisterOnly(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 10))
	mustAddLine(t, l, lineInput(productID, "1.00"))
	if _, err := l.SaveCart(context.Background(), "parked"); err != nil {
		t.Fatalf("save cart: %v", err)
	}

	l.NewCart()

	if got := l.Lines(); len(got) != 0 {
		t.Fatalf("expected empty register, got %+v", got)
	}
	if l.CurrentCartID() != uuid.Nil {
		t.Fatal("expected current cart cleared")
	}
	if carts := l.SavedCarts(); len(carts) != 1 {
		t.Fatalf("parked carts must survive a new cart, got %d", len(carts))
	}
	if l.Available(productID) != 9 {
		t.Fatalf("parked claim must stay reserved, got %d available", l.Available(productID))
	}
}

func TestAvailableClampsAtZero(t *testing.T) {
	l, store, cat, _ := newTestLedger(t)
	productID := uuid.New()
	store.loaded = []SavedCart{
		savedCartOf("overnight", productID, 8),
		savedCartOf("morning", productID, 7),
	}
	seedStock(t, l, cat, stockOf(productID, 10))

	if got := l.Available(productID); got != 0 {
		t.Fatalf("expected availability clamped to 0, got %d", got)
	}
}

func TestAvailableUnknownProduct(t *testing.T) {
	l, _, _, _ := newTestLedger(t)
	if got := l.Available(uuid.New()); got != 0 {
		t.Fatalf("expected 0 for unknown product, got %d", got)
	}
}

func TestCartTotal(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	first := uuid.New()
	second := uuid.New()
	seedStock(t, l, cat, stockOf(first, 5), stockOf(second, 5))

	mustAddLine(t, l, lineInput(first, "1.25"))
	if err := l.AdjustQuantity(first, 1); err != nil {
		t.Fatalf("adjust quantity: %v", err)
	}
	mustAddLine(t, l, lineInput(second, "0.99"))

	want := decimal.RequireFromString("3.49")
	if got := l.CartTotal(); !got.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, got)
	}
}

func TestUnsavedWork(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 10))

	if l.UnsavedWork() {
		t.Fatal("empty register has no unsaved work")
	}

	mustAddLine(t, l, lineInput(productID, "1.00"))
	if !l.UnsavedWork() {
		t.Fatal("an unparked cart is unsaved work")
	}

	if _, err := l.SaveCart(context.Background(), "parked"); err != nil {
		t.Fatalf("save cart: %v", err)
	}
	if l.UnsavedWork() {
		t.Fatal("a freshly parked cart has no unsaved work")
	}

	mustAddLine(t, l, lineInput(productID, "1.00"))
	if !l.UnsavedWork() {
		t.Fatal("edits after parking are unsaved work")
	}
}

func newTestLedger(t *testing.T) (*Ledger, *stubStore, *stubCatalog, *stubOrders) {
	t.Helper()
	store := &stubStore{}
	cat := &stubCatalog{}
	ord := &stubOrders{}
	l, err := New(Params{
		RegisterID: "till-1",
		Store:      store,
		Catalog:    cat,
		Orders:     ord,
		Logger:     logger.New(logger.Options{ServiceName: "ledger-test"}),
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l, store, cat, ord
}

func seedStock(t *testing.T, l *Ledger, cat *stubCatalog, records ...catalog.StockRecord) {
	t.Helper()
	cat.pages = append(cat.pages, &catalog.StockPage{Records: records, Total: len(records)})
	if err := l.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

func stockOf(productID uuid.UUID, quantity int) catalog.StockRecord {
	return catalog.StockRecord{ProductID: productID, Quantity: quantity, Expiry: enums.ExpiryValid}
}

func lineInput(productID uuid.UUID, price string) AddLineInput {
	return AddLineInput{
		ProductID: productID,
		SKU:       "sku-" + productID.String()[:8],
		Name:      "Test Product",
		UnitPrice: decimal.RequireFromString(price),
	}
}

func mustAddLine(t *testing.T, l *Ledger, input AddLineInput) {
	t.Helper()
	if err := l.AddLine(input); err != nil {
		t.Fatalf("add line: %v", err)
	}
}

func savedCartOf(name string, productID uuid.UUID, quantity int) SavedCart {
	now := time.Now().UTC()
	price := decimal.NewFromInt(1)
	return SavedCart{
		ID:   uuid.New(),
		Name: name,
		Items: []Line{{
			ProductID: productID,
			SKU:       "sku-parked",
			Name:      "Parked Product",
			UnitPrice: price,
			Quantity:  quantity,
		}},
		Total:     price.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type stubStore struct {
	loaded  []SavedCart
	loadErr error
	saveErr error
	saves   [][]SavedCart
}

func (s *stubStore) Load(ctx context.Context) ([]SavedCart, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.loaded, nil
}

func (s *stubStore) Save(ctx context.Context, carts []SavedCart) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	snapshot := make([]SavedCart, len(carts))
	copy(snapshot, carts)
	s.saves = append(s.saves, snapshot)
	return nil
}

type stubCatalog struct {
	pages []*catalog.StockPage
	err   error
	calls []catalog.FetchParams
}

func (s *stubCatalog) Fetch(ctx context.Context, params catalog.FetchParams) (*catalog.StockPage, error) {
	s.calls = append(s.calls, params)
	if len(s.pages) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return &catalog.StockPage{}, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

type stubOrders struct {
	receipt *orders.Receipt
	err     error
	orders  []orders.Order
}

func (s *stubOrders) Submit(ctx context.Context, order orders.Order) (*orders.Receipt, error) {
	s.orders = append(s.orders, order)
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
