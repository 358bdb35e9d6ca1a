package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/internal/catalog"
	"github.com/tilldesk/register-backend/internal/ledger"
	"github.com/tilldesk/register-backend/internal/orders"
	"github.com/tilldesk/register-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

type stubStore struct{}

func (stubStore) Load(ctx context.Context) ([]ledger.SavedCart, error) { return nil, nil }
func (stubStore) Save(ctx context.Context, carts []ledger.SavedCart) error {
	return nil
}

type stubCatalog struct {
	records []catalog.StockRecord
	err     error
	calls   int
}

func (s *stubCatalog) Fetch(ctx context.Context, params catalog.FetchParams) (*catalog.StockPage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.StockPage{Records: s.records, Total: len(s.records)}, nil
}

type stubOrders struct{}

func (stubOrders) Submit(ctx context.Context, order orders.Order) (*orders.Receipt, error) {
	return &orders.Receipt{ID: uuid.New()}, nil
}

type ledgerFactory struct {
	catalog *stubCatalog
	builds  int
	err     error
}

func (f *ledgerFactory) build(registerID string) (*ledger.Ledger, error) {
	f.builds++
	if f.err != nil {
		return nil, f.err
	}
	return ledger.New(ledger.Params{
		RegisterID: registerID,
		Store:      stubStore{},
		Catalog:    f.catalog,
		Orders:     stubOrders{},
		Logger:     logger.New(logger.Options{ServiceName: "session-test"}),
	})
}

func newTestManager(t *testing.T, factory *ledgerFactory) *Manager {
	t.Helper()
	m, err := NewManager(Params{
		Factory: factory.build,
		Logger:  logger.New(logger.Options{ServiceName: "session-test"}),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestAcquireBuildsOncePerRegister(t *testing.T) {
	factory := &ledgerFactory{catalog: &stubCatalog{}}
	m := newTestManager(t, factory)

	first, err := m.Acquire(context.Background(), "till-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := m.Acquire(context.Background(), "till-1")
	if err != nil {
		t.Fatalf("acquire again: %v", err)
	}
	if first != second {
		t.Fatal("expected the same ledger instance")
	}
	if factory.builds != 1 {
		t.Fatalf("expected one build, got %d", factory.builds)
	}
	if m.Count() != 1 {
		t.Fatalf("expected one session, got %d", m.Count())
	}
}

func TestAcquireRefreshesOnFirstUse(t *testing.T) {
	productID := uuid.New()
	cat := &stubCatalog{records: []catalog.StockRecord{{
		ProductID: productID,
		Quantity:  7,
		Expiry:    enums.ExpiryValid,
	}}}
	m := newTestManager(t, &ledgerFactory{catalog: cat})

	l, err := m.Acquire(context.Background(), "till-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if cat.calls == 0 {
		t.Fatal("expected the first acquire to fetch stock")
	}
	if !l.StockComplete() {
		t.Fatal("expected a complete index after first acquire")
	}
	if got := l.Available(productID); got != 7 {
		t.Fatalf("expected 7 available, got %d", got)
	}
}

func TestAcquireFailedRefreshIsNotCached(t *testing.T) {
	cat := &stubCatalog{err: errors.New("warehouse down")}
	factory := &ledgerFactory{catalog: cat}
	m := newTestManager(t, factory)

	if _, err := m.Acquire(context.Background(), "till-1"); err == nil {
		t.Fatal("expected first acquire to fail")
	}
	if m.Count() != 0 {
		t.Fatal("a failed session must not be cached")
	}

	cat.err = nil
	if _, err := m.Acquire(context.Background(), "till-1"); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if factory.builds != 2 {
		t.Fatalf("expected a rebuild on retry, got %d builds", factory.builds)
	}
}

func TestAcquireSeparatesRegisters(t *testing.T) {
	factory := &ledgerFactory{catalog: &stubCatalog{}}
	m := newTestManager(t, factory)

	left, err := m.Acquire(context.Background(), "till-left")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	right, err := m.Acquire(context.Background(), "till-right")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if left == right {
		t.Fatal("registers must not share a ledger")
	}
	if left.RegisterID() != "till-left" || right.RegisterID() != "till-right" {
		t.Fatalf("ledger bound to wrong register: %s / %s", left.RegisterID(), right.RegisterID())
	}
}

func TestAcquireValidatesRegisterID(t *testing.T) {
	m := newTestManager(t, &ledgerFactory{catalog: &stubCatalog{}})

	_, err := m.Acquire(context.Background(), "   ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEvictDropsSession(t *testing.T) {
	factory := &ledgerFactory{catalog: &stubCatalog{}}
	m := newTestManager(t, factory)

	if _, err := m.Acquire(context.Background(), "till-1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Evict("till-1")
	m.Evict("till-unknown")
	if m.Count() != 0 {
		t.Fatalf("expected no sessions, got %d", m.Count())
	}

	if _, err := m.Acquire(context.Background(), "till-1"); err != nil {
		t.Fatalf("acquire after evict: %v", err)
	}
	if factory.builds != 2 {
		t.Fatalf("expected a rebuild after evict, got %d builds", factory.builds)
	}
}

func TestFactoryFailureSurfaces(t *testing.T) {
	factory := &ledgerFactory{catalog: &stubCatalog{}, err: errors.New("bad wiring")}
	m := newTestManager(t, factory)

	_, err := m.Acquire(context.Background(), "till-1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}
