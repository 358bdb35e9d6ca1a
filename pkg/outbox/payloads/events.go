package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLineItem is one receipt line inside a completed-sale event.
type SaleLineItem struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// SaleCompletedEvent is emitted after a checkout has been accepted by the
// warehouse order endpoint.
type SaleCompletedEvent struct {
	ReceiptID    uuid.UUID       `json:"receipt_id"`
	RegisterID   string          `json:"register_id"`
	CustomerName string          `json:"customer_name"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Items        []SaleLineItem  `json:"items"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// RegisterOpenedEvent marks the first ledger session acquired for a register.
type RegisterOpenedEvent struct {
	RegisterID string    `json:"register_id"`
	OpenedAt   time.Time `json:"opened_at"`
}
