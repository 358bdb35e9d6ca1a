package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/internal/catalog"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/pagination"
)

// Refresh reloads parked carts from the store and rebuilds the stock index
// from the warehouse catalog, page by page. A failed page leaves the pages
// already fetched usable; StockComplete reports false until the final short
// page lands. The live cart is never touched.
func (l *Ledger) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	loaded, err := l.store.Load(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parked carts")
	}
	l.saved = loaded
	l.metrics.SetParkedCarts(l.registerID, len(l.saved))

	l.stock = make(map[uuid.UUID]int)
	l.stockComplete = false

	page := pagination.Page{Limit: l.pageSize}.Normalize()
	for {
		stockPage, err := l.catalog.Fetch(ctx, catalog.FetchParams{
			Limit:  page.Limit,
			Offset: page.Offset,
		})
		if err != nil {
			l.metrics.IncCatalogFailure()
			if typed := pkgerrors.As(err); typed != nil {
				return typed
			}
			return pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, "fetch stock page")
		}
		l.metrics.IncCatalogPage()

		for _, rec := range stockPage.Records {
			if rec.Quantity <= 0 || !rec.Expiry.Sellable() {
				continue
			}
			l.stock[rec.ProductID] += rec.Quantity
		}

		if page.Exhausted(len(stockPage.Records)) {
			l.stockComplete = true
			break
		}
		page = page.Next()
	}

	logCtx := l.logg.WithFields(ctx, map[string]any{
		"register_id":  l.registerID,
		"products":     len(l.stock),
		"parked_carts": len(l.saved),
	})
	l.logg.Info(logCtx, "register session refreshed")

	return nil
}
