package controllers

import (
	"context"
	"net/http"

	"github.com/tilldesk/register-backend/api/middleware"
	"github.com/tilldesk/register-backend/api/responses"
	"github.com/tilldesk/register-backend/internal/ledger"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

// registerSessions hands out the ledger bound to a register id. The first
// acquisition refreshes stock and parked carts from the backing services.
type registerSessions interface {
	Acquire(ctx context.Context, registerID string) (*ledger.Ledger, error)
}

func acquireLedger(r *http.Request, sessions registerSessions) (*ledger.Ledger, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable")
	}
	registerID := middleware.RegisterIDFromContext(r.Context())
	if registerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "register context missing")
	}
	return sessions.Acquire(r.Context(), registerID)
}

// SessionRefresh re-reads parked carts and rebuilds the stock index for the
// calling register.
func SessionRefresh(sessions registerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		led, err := acquireLedger(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := led.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"register_id":      led.RegisterID(),
			"catalog_complete": led.StockComplete(),
			"saved_carts":      len(led.SavedCarts()),
		})
	}
}
