package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
)

// SaveCart parks the live cart under the given name, or updates the parked
// cart it was loaded from. The store write happens before any in-memory
// change, so a failed persist leaves both the cart and the parked list as
// they were.
func (l *Ledger) SaveCart(ctx context.Context, name string) (*SavedCart, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot save an empty cart")
	}

	now := time.Now().UTC()
	trimmed := strings.TrimSpace(name)

	// The parked entry for a loaded cart can vanish when another terminal
	// on the same slot deletes it. Last write wins: saving parks the cart
	// again under its old id.
	idx := -1
	if l.currentCartID != uuid.Nil {
		idx = l.findSaved(l.currentCartID)
	}

	var next []SavedCart
	var result SavedCart
	if idx < 0 {
		id := l.currentCartID
		if id == uuid.Nil {
			id = uuid.New()
		}
		result = SavedCart{
			ID:        id,
			Name:      trimmed,
			Items:     copyLines(l.lines),
			Total:     totalOf(l.lines),
			CreatedAt: now,
			UpdatedAt: now,
		}
		next = make([]SavedCart, 0, len(l.saved)+1)
		next = append(next, result)
		next = append(next, l.saved...)
	} else {
		next = make([]SavedCart, len(l.saved))
		for i := range l.saved {
			next[i] = copySavedCart(l.saved[i])
		}
		updated := &next[idx]
		updated.Items = copyLines(l.lines)
		updated.Total = totalOf(l.lines)
		if trimmed != "" {
			updated.Name = trimmed
		}
		updated.UpdatedAt = now
		result = *updated
	}

	if err := l.store.Save(ctx, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist parked carts")
	}

	l.saved = next
	l.currentCartID = result.ID
	l.metrics.SetParkedCarts(l.registerID, len(l.saved))

	snapshot := copySavedCart(result)
	return &snapshot, nil
}

// LoadCart replaces the live cart with a copy of the parked cart's items
// and marks it current, so later saves update that cart in place. Whatever
// was on the register is discarded; callers gate on UnsavedWork first.
func (l *Ledger) LoadCart(cartID uuid.UUID) (*SavedCart, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.findSaved(cartID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeCartNotFound, "saved cart not found")
	}

	l.lines = copyLines(l.saved[idx].Items)
	l.currentCartID = cartID

	snapshot := copySavedCart(l.saved[idx])
	return &snapshot, nil
}

// DeleteCart removes a parked cart and releases its stock claims. Deleting
// a cart that is not parked is a no-op. Deleting the cart currently loaded
// on the register also clears the register.
func (l *Ledger) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.findSaved(cartID)
	if idx < 0 {
		return nil
	}

	next := make([]SavedCart, 0, len(l.saved)-1)
	for i := range l.saved {
		if i == idx {
			continue
		}
		next = append(next, copySavedCart(l.saved[i]))
	}

	if err := l.store.Save(ctx, next); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist parked carts")
	}

	l.saved = next
	if l.currentCartID == cartID {
		l.lines = nil
		l.currentCartID = uuid.Nil
	}
	l.metrics.SetParkedCarts(l.registerID, len(l.saved))
	return nil
}
