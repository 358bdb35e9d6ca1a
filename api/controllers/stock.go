package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tilldesk/register-backend/api/responses"
	"github.com/tilldesk/register-backend/api/validators"
	"github.com/tilldesk/register-backend/internal/catalog"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/pagination"
)

const maxStockOffset = 1_000_000

type stockReader interface {
	Fetch(ctx context.Context, params catalog.FetchParams) (*catalog.StockPage, error)
}

type stockRowResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int       `json:"quantity"`
	ExpiryStatus string    `json:"expiry_status"`
	Available    int       `json:"available"`
}

type stockPageResponse struct {
	Records         []stockRowResponse `json:"records"`
	Total           int                `json:"total"`
	Limit           int                `json:"limit"`
	Offset          int                `json:"offset"`
	CatalogComplete bool               `json:"catalog_complete"`
}

// StockBrowse pages the warehouse stock feed and annotates each row with
// what this register can still sell. quantity is raw warehouse stock;
// available is net of every cart's claims on this register.
func StockBrowse(sessions registerSessions, stock stockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stock == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock catalog unavailable"))
			return
		}

		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, maxStockOffset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search := strings.TrimSpace(r.URL.Query().Get("search"))

		page, err := stock.Fetch(r.Context(), catalog.FetchParams{
			Search: search,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records := make([]stockRowResponse, 0, len(page.Records))
		for _, rec := range page.Records {
			records = append(records, stockRowResponse{
				ProductID:    rec.ProductID,
				Quantity:     rec.Quantity,
				ExpiryStatus: rec.Expiry.String(),
				Available:    led.Available(rec.ProductID),
			})
		}

		responses.WriteSuccess(w, stockPageResponse{
			Records:         records,
			Total:           page.Total,
			Limit:           limit,
			Offset:          offset,
			CatalogComplete: led.StockComplete(),
		})
	}
}
