package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/internal/catalog"
	"github.com/tilldesk/register-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

func TestRefreshPagesUntilShortPage(t *testing.T) {
	store := &stubStore{}
	cat := &stubCatalog{}
	l, err := New(Params{
		RegisterID: "till-1",
		Store:      store,
		Catalog:    cat,
		Orders:     &stubOrders{},
		Logger:     logger.New(logger.Options{ServiceName: "ledger-test"}),
		PageSize:   2,
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	first := uuid.New()
	second := uuid.New()
	third := uuid.New()
	cat.pages = []*catalog.StockPage{
		{Records: []catalog.StockRecord{stockOf(first, 3), stockOf(second, 1)}, Total: 5},
		{Records: []catalog.StockRecord{stockOf(second, 2), stockOf(third, 4)}, Total: 5},
		{Records: []catalog.StockRecord{stockOf(first, 1)}, Total: 5},
	}

	if err := l.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if len(cat.calls) != 3 {
		t.Fatalf("expected three pages fetched, got %d", len(cat.calls))
	}
	for i, wantOffset := range []int{0, 2, 4} {
		if cat.calls[i].Limit != 2 || cat.calls[i].Offset != wantOffset {
			t.Fatalf("page %d: expected limit 2 offset %d, got %+v", i, wantOffset, cat.calls[i])
		}
	}
	if !l.StockComplete() {
		t.Fatal("short page must complete the index")
	}
	if got := l.Available(first); got != 4 {
		t.Fatalf("expected batches summed to 4, got %d", got)
	}
	if got := l.Available(second); got != 3 {
		t.Fatalf("expected batches summed to 3, got %d", got)
	}
	if got := l.Available(third); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestRefreshSkipsUnsellableStock(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	fresh := uuid.New()
	stale := uuid.New()

	cat.pages = []*catalog.StockPage{{
		Records: []catalog.StockRecord{
			{ProductID: fresh, Quantity: 5, Expiry: enums.ExpiryValid},
			{ProductID: fresh, Quantity: 2, Expiry: enums.ExpiryNearExpiry},
			{ProductID: fresh, Quantity: 9, Expiry: enums.ExpiryExpired},
			{ProductID: stale, Quantity: 0, Expiry: enums.ExpiryValid},
			{ProductID: stale, Quantity: -3, Expiry: enums.ExpiryValid},
		},
		Total: 5,
	}}

	if err := l.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := l.Available(fresh); got != 7 {
		t.Fatalf("expected valid plus near-expiry batches, got %d", got)
	}
	if got := l.Available(stale); got != 0 {
		t.Fatalf("expected no sellable stock, got %d", got)
	}
}

func TestRefreshKeepsPartialIndexOnPageFailure(t *testing.T) {
	store := &stubStore{}
	cat := &stubCatalog{}
	l, err := New(Params{
		RegisterID: "till-1",
		Store:      store,
		Catalog:    cat,
		Orders:     &stubOrders{},
		Logger:     logger.New(logger.Options{ServiceName: "ledger-test"}),
		PageSize:   1,
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	productID := uuid.New()
	cat.pages = []*catalog.StockPage{
		{Records: []catalog.StockRecord{stockOf(productID, 6)}, Total: 2},
	}
	cat.err = errors.New("warehouse down")

	err = l.Refresh(context.Background())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeCatalogUnavailable {
		t.Fatalf("expected catalog unavailable, got %v", err)
	}
	if l.StockComplete() {
		t.Fatal("a failed page must leave the index incomplete")
	}
	if got := l.Available(productID); got != 6 {
		t.Fatalf("pages fetched before the failure must stay usable, got %d", got)
	}
}

func TestRefreshPreservesTypedCatalogError(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	cat.err = pkgerrors.New(pkgerrors.CodeCatalogUnavailable, "stock request failed")

	err := l.Refresh(context.Background())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() != "stock request failed" {
		t.Fatalf("expected the client error passed through, got %v", err)
	}
}

func TestRefreshReloadsParkedCarts(t *testing.T) {
	l, store, cat, _ := newTestLedger(t)
	productID := uuid.New()
	store.loaded = []SavedCart{savedCartOf("overnight", productID, 4)}

	seedStock(t, l, cat, stockOf(productID, 10))

	carts := l.SavedCarts()
	if len(carts) != 1 || carts[0].Name != "overnight" {
		t.Fatalf("expected the stored cart, got %+v", carts)
	}
	if got := l.Available(productID); got != 6 {
		t.Fatalf("reloaded carts must claim stock, got %d", got)
	}
}

func TestRefreshStoreFailureKeepsOldIndex(t *testing.T) {
	l, store, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 10))
	store.loadErr = errors.New("redis down")

	err := l.Refresh(context.Background())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if got := l.Available(productID); got != 10 {
		t.Fatalf("a failed reload must keep the previous index, got %d", got)
	}
	if !l.StockComplete() {
		t.Fatal("a failed reload must not reset completeness")
	}
}

func TestRefreshKeepsLiveCart(t *testing.T) {
	l, _, cat, _ := newTestLedger(t)
	productID := uuid.New()
	seedStock(t, l, cat, stockOf(productID, 10))
	mustAddLine(t, l, lineInput(productID, "1.00"))

	seedStock(t, l, cat, stockOf(productID, 8))

	lines := l.Lines()
	if len(lines) != 1 || lines[0].Quantity != 1 {
		t.Fatalf("refresh must not touch the live cart, got %+v", lines)
	}
	if got := l.Available(productID); got != 7 {
		t.Fatalf("expected new stock minus live claim, got %d", got)
	}
}
