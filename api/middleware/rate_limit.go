package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/tilldesk/register-backend/api/responses"
	"github.com/tilldesk/register-backend/pkg/config"
	pkgerrors "github.com/tilldesk/register-backend/pkg/errors"
	"github.com/tilldesk/register-backend/pkg/logger"
)

type checkoutLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// CheckoutRateLimit caps how many checkouts a single register can attempt per
// window. The counter is keyed by register id, so a runaway till cannot starve
// the warehouse order API for the rest of the floor.
func CheckoutRateLimit(cfg config.CheckoutConfig, store checkoutLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			registerID := RegisterIDFromContext(ctx)
			if registerID == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := store.FixedWindowAllow(ctx, "checkout:"+registerID, int64(cfg.RateLimitMax), cfg.RateLimitWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          cfg.RateLimitMax,
						"window_seconds": int(cfg.RateLimitWindow.Seconds()),
					})
					logg.Warn(logCtx, "checkout.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "checkout rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
