package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/internal/orders"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
)

// Checkout submits the live cart to the warehouse order backend. On success
// the register is cleared and, if the cart had been parked, its parked copy
// is removed. On failure the cart stays exactly as it was so the cashier can
// retry or edit.
func (l *Ledger) Checkout(ctx context.Context, customerName string) (*orders.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot check out an empty cart")
	}

	order := orders.Order{
		CustomerName: strings.TrimSpace(customerName),
		GrandTotal:   totalOf(l.lines),
		Items:        make([]orders.OrderItem, 0, len(l.lines)),
	}
	for _, line := range l.lines {
		order.Items = append(order.Items, orders.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	receipt, err := l.orders.Submit(ctx, order)
	if err != nil {
		l.metrics.IncCheckout("failed")
		return nil, err
	}

	if l.currentCartID != uuid.Nil {
		if idx := l.findSaved(l.currentCartID); idx >= 0 {
			next := make([]SavedCart, 0, len(l.saved)-1)
			for i := range l.saved {
				if i == idx {
					continue
				}
				next = append(next, copySavedCart(l.saved[i]))
			}
			if err := l.store.Save(ctx, next); err != nil {
				// The sale already went through; a stale parked copy is
				// recoverable, an un-cleared register is not.
				logCtx := l.logg.WithFields(ctx, map[string]any{
					"register_id": l.registerID,
					"cart_id":     l.currentCartID.String(),
					"error":       err.Error(),
				})
				l.logg.Warn(logCtx, "parked cart cleanup failed after checkout")
			} else {
				l.saved = next
			}
		}
	}

	l.lines = nil
	l.currentCartID = uuid.Nil
	l.metrics.IncCheckout("ok")
	l.metrics.SetParkedCarts(l.registerID, len(l.saved))

	logCtx := l.logg.WithFields(ctx, map[string]any{
		"register_id": l.registerID,
		"receipt_id":  receipt.ID.String(),
		"grand_total": receipt.GrandTotal.String(),
		"items":       len(receipt.Items),
	})
	l.logg.Info(logCtx, "checkout completed")

	return receipt, nil
}
