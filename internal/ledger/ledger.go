// Package ledger tracks, per register, how many units of each product are
// still available to sell once every parked cart's claim is accounted for.
// It owns the live cart, the parked carts and the checkout handoff; the
// warehouse stays authoritative, so availability here is an advisory guard
// for the cashier, not a hard reservation.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/register-backend/internal/catalog"
	"github.com/tilldesk/register-backend/internal/orders"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/metrics"
)

const defaultPageSize = 100

// Line is one product entry in the live cart. Quantity is always >= 1;
// a line driven to zero is removed, never stored.
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// SavedCart is a parked snapshot of a cart. Total is materialized for reads
// but recomputed from Items on every save, never patched incrementally.
type SavedCart struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name,omitempty"`
	Items     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InsufficientStockDetails reports the numbers behind a rejected mutation.
type InsufficientStockDetails struct {
	Available int `json:"available"`
	Requested int `json:"requested"`
}

// CartStore persists the full parked-cart array for one register. Load reads
// everything; Save rewrites everything. There are no partial writes.
type CartStore interface {
	Load(ctx context.Context) ([]SavedCart, error)
	Save(ctx context.Context, carts []SavedCart) error
}

// StockCatalog pages the warehouse stock feed.
type StockCatalog interface {
	Fetch(ctx context.Context, params catalog.FetchParams) (*catalog.StockPage, error)
}

// OrderSubmitter commits a finished cart as a warehouse order.
type OrderSubmitter interface {
	Submit(ctx context.Context, order orders.Order) (*orders.Receipt, error)
}

// Params wires one register's ledger.
type Params struct {
	RegisterID string
	Store      CartStore
	Catalog    StockCatalog
	Orders     OrderSubmitter
	Logger     *logger.Logger
	Metrics    *metrics.RegisterMetrics
	PageSize   int
}

// Ledger is the per-register reservation engine. All operations serialize on
// one mutex so cashier actions apply in the order issued.
type Ledger struct {
	mu sync.Mutex

	registerID string
	store      CartStore
	catalog    StockCatalog
	orders     OrderSubmitter
	logg       *logger.Logger
	metrics    *metrics.RegisterMetrics
	pageSize   int

	lines         []Line
	currentCartID uuid.UUID
	saved         []SavedCart
	stock         map[uuid.UUID]int
	stockComplete bool
}

// New builds a ledger for one register.
func New(params Params) (*Ledger, error) {
	if params.RegisterID == "" {
		return nil, errors.New("register id is required")
	}
	if params.Store == nil {
		return nil, errors.New("cart store is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("stock catalog is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order submitter is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Ledger{
		registerID: params.RegisterID,
		store:      params.Store,
		catalog:    params.Catalog,
		orders:     params.Orders,
		logg:       params.Logger,
		metrics:    params.Metrics,
		pageSize:   pageSize,
		stock:      make(map[uuid.UUID]int),
	}, nil
}

// available is the sellable stock for a product minus every other cart's
// claim minus the live cart's own lines, floored at zero. The parked entry
// matching currentCartID is skipped: the live lines carry that cart's claim,
// counting both would double-reserve.
func (l *Ledger) available(productID uuid.UUID) int {
	remaining := l.stock[productID]
	for _, cart := range l.saved {
		if cart.ID == l.currentCartID {
			continue
		}
		remaining -= qtyIn(cart.Items, productID)
	}
	remaining -= qtyIn(l.lines, productID)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Available reports how many units of a product this register could still
// sell. Best effort until StockComplete reports true.
func (l *Ledger) Available(productID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available(productID)
}

// RegisterID returns the register this ledger serves.
func (l *Ledger) RegisterID() string {
	return l.registerID
}

// Lines returns a copy of the live cart.
func (l *Ledger) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyLines(l.lines)
}

// SavedCarts returns a copy of the parked carts, newest first.
func (l *Ledger) SavedCarts() []SavedCart {
	l.mu.Lock()
	defer l.mu.Unlock()
	carts := make([]SavedCart, len(l.saved))
	for i, cart := range l.saved {
		carts[i] = copySavedCart(cart)
	}
	return carts
}

// CurrentCartID returns the parked cart backing the live cart, or uuid.Nil
// when the live cart has never been saved.
func (l *Ledger) CurrentCartID() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentCartID
}

// StockComplete reports whether the catalog has signaled no-more-pages.
// Until then availability is an under-estimate.
func (l *Ledger) StockComplete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stockComplete
}

// CartTotal returns the live cart's grand total.
func (l *Ledger) CartTotal() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return totalOf(l.lines)
}

// UnsavedWork reports whether discarding the live cart would lose edits the
// parked carts don't hold. The UI confirms before load/new; the ledger only
// exposes the fact.
func (l *Ledger) UnsavedWork() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return false
	}
	if l.currentCartID == uuid.Nil {
		return true
	}
	idx := l.findSaved(l.currentCartID)
	if idx < 0 {
		return true
	}
	return !equalLines(l.lines, l.saved[idx].Items)
}

func (l *Ledger) findSaved(cartID uuid.UUID) int {
	for i, cart := range l.saved {
		if cart.ID == cartID {
			return i
		}
	}
	return -1
}

func qtyIn(lines []Line, productID uuid.UUID) int {
	total := 0
	for _, line := range lines {
		if line.ProductID == productID {
			total += line.Quantity
		}
	}
	return total
}

func totalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func copyLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func copySavedCart(cart SavedCart) SavedCart {
	cart.Items = copyLines(cart.Items)
	return cart
}

func equalLines(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ProductID != b[i].ProductID ||
			a[i].SKU != b[i].SKU ||
			a[i].Name != b[i].Name ||
			a[i].Quantity != b[i].Quantity ||
			!a[i].UnitPrice.Equal(b[i].UnitPrice) {
			return false
		}
	}
	return true
}
