package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/api/responses"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

type availabilityResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	Available       int       `json:"available"`
	CatalogComplete bool      `json:"catalog_complete"`
}

// Availability reports how many units of a product the calling register can
// still sell once every parked cart's claim is subtracted. catalog_complete
// false flags the number as an under-estimate.
func Availability(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
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

		responses.WriteSuccess(w, availabilityResponse{
			ProductID:       productID,
			Available:       led.Available(productID),
			CatalogComplete: led.StockComplete(),
		})
	}
}
