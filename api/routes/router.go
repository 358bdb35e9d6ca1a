package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tilldesk/register-backend/api/controllers"
	"github.com/tilldesk/register-backend/api/middleware"
	"github.com/tilldesk/register-backend/internal/catalog"
	"github.com/tilldesk/register-backend/internal/ledger"
	"github.com/tilldesk/register-backend/pkg/config"
	"github.com/tilldesk/register-backend/pkg/db"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/outbox/payloads"
	pkgredis "github.com/tilldesk/register-backend/pkg/redis"
)

type registerSessions interface {
	Acquire(ctx context.Context, registerID string) (*ledger.Ledger, error)
}

type saleJournal interface {
	SaleCompleted(ctx context.Context, sale payloads.SaleCompletedEvent)
}

type stockCatalog interface {
	Fetch(ctx context.Context, params catalog.FetchParams) (*catalog.StockPage, error)
}

// redisStore is the slice of the redis client the router hands to middleware
// and health checks. Passing nil disables idempotency and rate limiting.
type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	sessions registerSessions,
	journal saleJournal,
	stock stockCatalog,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RegisterContext(logg))
		r.Use(middleware.Idempotency(cfg.Checkout, redisClient, logg))

		r.Get("/ping", controllers.RegisterPing())
		r.Post("/session/refresh", controllers.SessionRefresh(sessions, logg))

		r.Get("/availability/{productID}", controllers.Availability(sessions, logg))
		r.Get("/stock", controllers.StockBrowse(sessions, stock, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(sessions, logg))
			r.Post("/new", controllers.CartNew(sessions, logg))
			r.Post("/lines", controllers.CartAddLine(sessions, logg))
			r.Patch("/lines/{productID}", controllers.CartAdjustLine(sessions, logg))
			r.Delete("/lines/{productID}", controllers.CartRemoveLine(sessions, logg))
		})

		r.Route("/carts", func(r chi.Router) {
			r.Get("/", controllers.CartsList(sessions, logg))
			r.Post("/", controllers.CartsSave(sessions, logg))
			r.Post("/{cartID}/load", controllers.CartsLoad(sessions, logg))
			r.Delete("/{cartID}", controllers.CartsDelete(sessions, logg))
		})

		r.With(middleware.CheckoutRateLimit(cfg.Checkout, redisClient, logg)).Post("/checkout", controllers.Checkout(sessions, journal, logg))
	})

	return r
}
