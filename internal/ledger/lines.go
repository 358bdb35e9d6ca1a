package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
)

// AddLineInput carries the product data for a new or incremented line.
type AddLineInput struct {
	ProductID uuid.UUID
	SKU       string
	Name      string
	UnitPrice decimal.Decimal
}

// AddLine inserts the product with quantity one or increments its existing
// line by one. A rejected add leaves the cart untouched.
func (l *Ledger) AddLine(input AddLineInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	own := qtyIn(l.lines, input.ProductID)
	proposed := own + 1
	if err := l.guardIncrease(input.ProductID, proposed, own); err != nil {
		return err
	}

	for i := range l.lines {
		if l.lines[i].ProductID == input.ProductID {
			l.lines[i].Quantity++
			return nil
		}
	}
	l.lines = append(l.lines, Line{
		ProductID: input.ProductID,
		SKU:       input.SKU,
		Name:      input.Name,
		UnitPrice: input.UnitPrice,
		Quantity:  1,
	})
	return nil
}

// AdjustQuantity applies a +/- stepper delta to an existing line. A result
// of zero or below removes the line. Increases are stock-guarded; decreases
// always succeed since they can only free stock.
func (l *Ledger) AdjustQuantity(productID uuid.UUID, delta int) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.lines {
		if l.lines[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	current := l.lines[idx].Quantity
	proposed := current + delta
	if proposed <= 0 {
		l.lines = append(l.lines[:idx], l.lines[idx+1:]...)
		return nil
	}
	if delta > 0 {
		if err := l.guardIncrease(productID, proposed, current); err != nil {
			return err
		}
	}
	l.lines[idx].Quantity = proposed
	return nil
}

// RemoveLine drops the product's line. Removing an absent line is a no-op.
func (l *Ledger) RemoveLine(productID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.lines {
		if l.lines[i].ProductID == productID {
			l.lines = append(l.lines[:i], l.lines[i+1:]...)
			return
		}
	}
}

// NewCart abandons the live cart unconditionally. Parked carts are
// untouched; an abandoned unsaved cart simply stops claiming stock. Asking
// the cashier before discarding edits is the caller's job (see UnsavedWork).
func (l *Ledger) NewCart() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = nil
	l.currentCartID = uuid.Nil
}

// guardIncrease rejects a quantity increase that would claim more than the
// stock left to this cart. Other carts' claims are fixed; the live cart may
// grow until sellable stock minus those claims is exhausted. The error
// reports availability as the cashier sees it: net of this cart's own lines.
func (l *Ledger) guardIncrease(productID uuid.UUID, proposed, own int) error {
	available := l.available(productID)
	if proposed > available+own {
		l.metrics.IncStockRejection()
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(InsufficientStockDetails{Available: available, Requested: proposed})
	}
	return nil
}
