package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/register-backend/api/responses"
	"github.com/tilldesk/register-backend/api/validators"
	"github.com/tilldesk/register-backend/internal/ledger"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

const (
	maxSKULength  = 64
	maxNameLength = 120
)

type cartLineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type cartResponse struct {
	Lines         []cartLineResponse `json:"lines"`
	Total         decimal.Decimal    `json:"total"`
	CurrentCartID *uuid.UUID         `json:"current_cart_id,omitempty"`
	UnsavedWork   bool               `json:"unsaved_work"`
}

func newCartResponse(led *ledger.Ledger) cartResponse {
	lines := led.Lines()
	out := make([]cartLineResponse, 0, len(lines))
	for _, line := range lines {
		out = append(out, cartLineResponse{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	resp := cartResponse{
		Lines:       out,
		Total:       led.CartTotal(),
		UnsavedWork: led.UnsavedWork(),
	}
	if id := led.CurrentCartID(); id != uuid.Nil {
		resp.CurrentCartID = &id
	}
	return resp
}

// CartFetch returns the register's live cart.
func CartFetch(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(led))
	}
}

type addLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CartAddLine adds one unit of a product to the live cart, merging into an
// existing line for the same product.
func CartAddLine(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledger.AddLineInput{
			ProductID: payload.ProductID,
			SKU:       validators.SanitizeString(payload.SKU, maxSKULength),
			Name:      validators.SanitizeString(payload.Name, maxNameLength),
			UnitPrice: payload.UnitPrice,
		}
		if err := led.AddLine(input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(led))
	}
}

type adjustLineRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// CartAdjustLine applies a +/- quantity delta to an existing line. Driving
// the quantity to zero or below removes the line.
func CartAdjustLine(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := led.AdjustQuantity(productID, payload.Delta); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(led))
	}
}

// CartRemoveLine drops a product's line from the live cart. Removing a line
// that is not there succeeds quietly.
func CartRemoveLine(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		led.RemoveLine(productID)
		responses.WriteSuccess(w, newCartResponse(led))
	}
}

// CartNew clears the register for the next customer. Parked carts keep their
// claims; the UI is expected to confirm when unsaved_work was true.
func CartNew(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		led.NewCart()
		responses.WriteSuccess(w, newCartResponse(led))
	}
}
