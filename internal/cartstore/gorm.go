// Package cartstore persists a register's parked carts. Two backends
// implement the same contract: a Redis slot holding the register's carts as
// one JSON array, and a SQL table rewritten on every save. A cart must
// round-trip unchanged through either backend, ids and timestamps included,
// so a register can be moved between them.
package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tilldesk/register-backend/internal/ledger"
	"github.com/tilldesk/register-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormStore keeps parked carts in the parked_carts table, one row per cart.
// Save replaces the register's whole set in a single transaction; the
// position column preserves newest-first ordering across reloads.
type GormStore struct {
	db         txRunner
	registerID string
}

// NewGormStore builds a SQL-backed cart store scoped to one register.
func NewGormStore(db txRunner, registerID string) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("db runner is required")
	}
	if strings.TrimSpace(registerID) == "" {
		return nil, errors.New("register id is required")
	}
	return &GormStore{db: db, registerID: registerID}, nil
}

// Load returns the register's parked carts in saved order.
func (s *GormStore) Load(ctx context.Context) ([]ledger.SavedCart, error) {
	var rows []models.ParkedCart
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.
			Where("register_id = ?", s.registerID).
			Order("position asc").
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("loading parked carts: %w", err)
	}

	carts := make([]ledger.SavedCart, 0, len(rows))
	for _, row := range rows {
		var items []ledger.Line
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return nil, fmt.Errorf("decoding cart %s items: %w", row.ID, err)
		}
		carts = append(carts, ledger.SavedCart{
			ID:        row.ID,
			Name:      row.Name,
			Items:     items,
			Total:     row.Total,
			CreatedAt: row.CartCreatedAt,
			UpdatedAt: row.CartUpdatedAt,
		})
	}
	return carts, nil
}

// Save replaces the register's parked set with the given carts.
func (s *GormStore) Save(ctx context.Context, carts []ledger.SavedCart) error {
	rows := make([]models.ParkedCart, 0, len(carts))
	for i, cart := range carts {
		items, err := json.Marshal(cart.Items)
		if err != nil {
			return fmt.Errorf("encoding cart %s items: %w", cart.ID, err)
		}
		rows = append(rows, models.ParkedCart{
			ID:            cart.ID,
			RegisterID:    s.registerID,
			Name:          cart.Name,
			Items:         items,
			Total:         cart.Total,
			Position:      i,
			CartCreatedAt: cart.CreatedAt,
			CartUpdatedAt: cart.UpdatedAt,
		})
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.
			Where("register_id = ?", s.registerID).
			Delete(&models.ParkedCart{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("saving parked carts: %w", err)
	}
	return nil
}
