package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/register-backend/api/responses"
	"github.com/tilldesk/register-backend/api/validators"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/outbox/payloads"
)

// saleJournal records completed sales for HQ analytics. Journaling never
// blocks or fails a checkout.
type saleJournal interface {
	SaleCompleted(ctx context.Context, sale payloads.SaleCompletedEvent)
}

type checkoutRequest struct {
	CustomerName string `json:"customer_name"`
}

type receiptItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type receiptResponse struct {
	ID           uuid.UUID             `json:"id"`
	CustomerName string                `json:"customer_name,omitempty"`
	GrandTotal   decimal.Decimal       `json:"grand_total"`
	Items        []receiptItemResponse `json:"items"`
	CreatedAt    time.Time             `json:"created_at"`
}

// Checkout submits the live cart to the warehouse and clears the register on
// success. The warehouse is the arbiter: a rejection reaches the cashier
// verbatim and leaves the cart intact for retry.
func Checkout(sessions registerSessions, journal saleJournal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerName := validators.SanitizeString(payload.CustomerName, maxNameLength)

		// The receipt only carries product/quantity pairs; snapshot the full
		// lines now so the journal keeps prices and names.
		soldLines := led.Lines()

		receipt, err := led.Checkout(r.Context(), customerName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if journal != nil {
			completedAt := receipt.CreatedAt
			if completedAt.IsZero() {
				completedAt = time.Now().UTC()
			}
			items := make([]payloads.SaleLineItem, 0, len(soldLines))
			for _, line := range soldLines {
				items = append(items, payloads.SaleLineItem{
					ProductID: line.ProductID.String(),
					SKU:       line.SKU,
					Name:      line.Name,
					UnitPrice: line.UnitPrice,
					Quantity:  line.Quantity,
				})
			}
			journal.SaleCompleted(r.Context(), payloads.SaleCompletedEvent{
				ReceiptID:    receipt.ID,
				RegisterID:   led.RegisterID(),
				CustomerName: receipt.CustomerName,
				GrandTotal:   receipt.GrandTotal,
				Items:        items,
				CompletedAt:  completedAt,
			})
		}

		items := make([]receiptItemResponse, 0, len(receipt.Items))
		for _, item := range receipt.Items {
			items = append(items, receiptItemResponse{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receiptResponse{
			ID:           receipt.ID,
			CustomerName: receipt.CustomerName,
			GrandTotal:   receipt.GrandTotal,
			Items:        items,
			CreatedAt:    receipt.CreatedAt,
		})
	}
}
