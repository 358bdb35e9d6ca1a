package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/register-backend/api/responses"
	"github.com/tilldesk/register-backend/api/validators"
	"github.com/tilldesk/register-backend/internal/ledger"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

type savedCartResponse struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name,omitempty"`
	Items     []cartLineResponse `json:"items"`
	Total     decimal.Decimal    `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func newSavedCartResponse(cart ledger.SavedCart) savedCartResponse {
	items := make([]cartLineResponse, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, cartLineResponse{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return savedCartResponse{
		ID:        cart.ID,
		Name:      cart.Name,
		Items:     items,
		Total:     cart.Total,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
}

// CartsList returns the register's parked carts, newest first.
func CartsList(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saved := led.SavedCarts()
		carts := make([]savedCartResponse, 0, len(saved))
		for _, cart := range saved {
			carts = append(carts, newSavedCartResponse(cart))
		}

		responses.WriteSuccess(w, map[string]any{"carts": carts})
	}
}

type saveCartRequest struct {
	Name string `json:"name"`
}

// CartsSave parks the live cart under the given name, or updates the parked
// cart it was loaded from. An empty name on update keeps the existing one.
func CartsSave(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saveCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saved, err := led.SaveCart(r.Context(), validators.SanitizeString(payload.Name, maxNameLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSavedCartResponse(*saved))
	}
}

// CartsLoad puts a parked cart on the register and returns the resulting
// live cart. Whatever the register held is discarded.
func CartsLoad(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id"))
			return
		}

		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := led.LoadCart(cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(led))
	}
}

// CartsDelete removes a parked cart and releases its claims. Deleting a cart
// that is already gone succeeds quietly.
func CartsDelete(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id"))
			return
		}

		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := led.DeleteCart(r.Context(), cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
