package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/tilldesk/register-backend/api/routes"
	"github.com/tilldesk/register-backend/internal/cartstore"
	"github.com/tilldesk/register-backend/internal/catalog"
	"github.com/tilldesk/register-backend/internal/cron"
	"github.com/tilldesk/register-backend/internal/ledger"
	"github.com/tilldesk/register-backend/internal/orders"
	"github.com/tilldesk/register-backend/internal/sales/journal"
	"github.com/tilldesk/register-backend/internal/session"
	"github.com/tilldesk/register-backend/pkg/config"
	"github.com/tilldesk/register-backend/pkg/db"
	"github.com/tilldesk/register-backend/pkg/logger"
	"github.com/tilldesk/register-backend/pkg/metrics"
	"github.com/tilldesk/register-backend/pkg/migrate"
	"github.com/tilldesk/register-backend/pkg/outbox"
	"github.com/tilldesk/register-backend/pkg/outbox/publisher"
	"github.com/tilldesk/register-backend/pkg/outbox/registry"
	"github.com/tilldesk/register-backend/pkg/pubsub"
	"github.com/tilldesk/register-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "register"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "register",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	catalogClient, err := catalog.NewClient(cfg.Warehouse)
	requireResource(ctx, logg, "warehouse catalog client", err)

	ordersClient, err := orders.NewClient(cfg.Warehouse)
	requireResource(ctx, logg, "warehouse orders client", err)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	dlqRepo := outbox.NewDLQRepository(dbClient.DB())

	journalSvc, err := journal.NewService(dbClient, outbox.NewService(outboxRepo, logg), logg)
	requireResource(ctx, logg, "sales journal", err)

	registerMetrics := metrics.NewRegisterMetrics(prometheus.DefaultRegisterer)

	manager, err := session.NewManager(session.Params{
		Factory: func(registerID string) (*ledger.Ledger, error) {
			store, err := newCartStore(cfg, redisClient, dbClient, registerID)
			if err != nil {
				return nil, err
			}
			return ledger.New(ledger.Params{
				RegisterID: registerID,
				Store:      store,
				Catalog:    catalogClient,
				Orders:     ordersClient,
				Logger:     logg,
				Metrics:    registerMetrics,
				PageSize:   cfg.Warehouse.StockPageSize,
			})
		},
		Journal: journalSvc,
		Logger:  logg,
		Metrics: registerMetrics,
	})
	requireResource(ctx, logg, "session manager", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "failed to close pubsub client", err)
			}
		}()

		eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
		requireResource(ctx, logg, "event registry", err)

		publisherSvc, err := publisher.NewService(publisher.ServiceParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			PubSub:        pubsubClient,
			Repository:    outboxRepo,
			Registry:      eventRegistry,
			DLQRepository: dlqRepo,
		})
		requireResource(ctx, logg, "journal publisher", err)

		go func() {
			if err := publisherSvc.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(runCtx, "journal publisher stopped unexpectedly", err)
			}
		}()
	} else {
		logg.Warn(ctx, "gcp project not configured, sales journal stays local")
	}

	if cfg.Cron.Enabled {
		retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
			Logger:    logg,
			Outbox:    outboxRepo,
			DLQ:       dlqRepo,
			Retention: cfg.Outbox.Retention,
		})
		requireResource(ctx, logg, "retention job", err)

		lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey("retention"), cfg.Cron.LockTTL)
		requireResource(ctx, logg, "cron lock", err)

		cronSvc, err := cron.NewService(cron.ServiceParams{
			Logger:   logg,
			Registry: cron.NewRegistry(retentionJob),
			Lock:     lock,
			Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
			Interval: cfg.Cron.Interval,
		})
		requireResource(ctx, logg, "cron service", err)

		go func() {
			if err := cronSvc.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(runCtx, "cron service stopped unexpectedly", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serveCtx := logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serveCtx, "starting register server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, manager, journalSvc, catalogClient),
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "register server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(serveCtx, "register server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(serveCtx, "register server shut down")
}

// newCartStore picks the parked-cart backend for one register.
func newCartStore(cfg *config.Config, redisClient *redis.Client, dbClient *db.Client, registerID string) (ledger.CartStore, error) {
	switch cfg.CartStore.Backend {
	case config.CartStoreBackendDB:
		return cartstore.NewGormStore(dbClient, registerID)
	case config.CartStoreBackendRedis:
		return cartstore.NewRedisStore(redisClient, registerID)
	default:
		return nil, fmt.Errorf("unknown cart store backend %q", cfg.CartStore.Backend)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
