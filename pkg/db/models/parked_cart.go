package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ParkedCart is one saved cart row in the db-backed cart store. The store
// rewrites the full set for a register on every mutation, so rows carry a
// position column to preserve newest-first ordering across reloads.
//
// IDs and timestamps come from the cashier session, not the database; the
// same cart must round-trip byte-for-byte through Redis and SQL backends.
type ParkedCart struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RegisterID    string          `gorm:"column:register_id;size:64;not null;index:idx_parked_carts_register"`
	Name          string          `gorm:"column:name;size:160;not null"`
	Items         json.RawMessage `gorm:"column:items;type:jsonb;not null"`
	Total         decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`
	Position      int             `gorm:"column:position;not null;default:0"`
	CartCreatedAt time.Time       `gorm:"column:cart_created_at;not null"`
	CartUpdatedAt time.Time       `gorm:"column:cart_updated_at;not null"`
}

func (ParkedCart) TableName() string {
	return "parked_carts"
}
