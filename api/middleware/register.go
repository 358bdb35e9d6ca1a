package middleware

import (
	"net/http"
	"strings"

	"github.com/tilldesk/register-backend/api/responses"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

const (
	registerIDHeader    = "X-Register-Id"
	maxRegisterIDLength = 64
)

// RegisterContext requires the X-Register-Id header on every register-scoped
// route and carries the id through the request context and log fields. The
// register id names a till, not a user; authentication stays with the
// warehouse API the register forwards tokens to.
func RegisterContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			registerID := strings.TrimSpace(r.Header.Get(registerIDHeader))
			if registerID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Register-Id header required"))
				return
			}
			if len(registerID) > maxRegisterIDLength {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "register id too long"))
				return
			}

			ctx := WithRegisterID(r.Context(), registerID)
			if logg != nil {
				ctx = logg.WithRegisterID(ctx, registerID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
