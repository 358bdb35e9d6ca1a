package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "TILLDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv           = "TILLDESK_APP_ENV"
	EnvPort             = "TILLDESK_APP_PORT"
	EnvWarehouseBaseURL = "TILLDESK_WAREHOUSE_BASE_URL"
	EnvRedisURL         = "TILLDESK_REDIS_URL"

	EnvDBDSN  = "TILLDESK_DB_DSN"
	EnvDBHost = "TILLDESK_DB_HOST"
	EnvDBUser = "TILLDESK_DB_USER"
	EnvDBName = "TILLDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	Warehouse    WarehouseConfig
	DB           DBConfig
	Redis        RedisConfig
	CartStore    CartStoreConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TILLDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"TILLDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TILLDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TILLDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TILLDESK_SERVICE_KIND" default:"register"`
}

// WarehouseConfig points the register at the warehouse admin API that owns
// products, stock and order persistence. The register never stores either;
// it only reads the stock feed and submits checkouts.
type WarehouseConfig struct {
	BaseURL       string        `envconfig:"TILLDESK_WAREHOUSE_BASE_URL" required:"true"`
	APIToken      string        `envconfig:"TILLDESK_WAREHOUSE_API_TOKEN"`
	Timeout       time.Duration `envconfig:"TILLDESK_WAREHOUSE_TIMEOUT" default:"10s"`
	StockPageSize int           `envconfig:"TILLDESK_WAREHOUSE_STOCK_PAGE_SIZE" default:"100"`
}

type DBConfig struct {
	DSN    string `envconfig:"TILLDESK_DB_DSN"`
	Driver string `envconfig:"TILLDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TILLDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"TILLDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TILLDESK_DB_USER"`
	LegacyPassword string `envconfig:"TILLDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"TILLDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"TILLDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TILLDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TILLDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TILLDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TILLDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TILLDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TILLDESK_REDIS_ADDR"`
	Password     string        `envconfig:"TILLDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TILLDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TILLDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TILLDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TILLDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TILLDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TILLDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CartStoreConfig selects where parked carts live. Standalone terminals run
// the db backend over a local SQLite file; multi-till deployments usually
// share a Redis.
type CartStoreConfig struct {
	Backend string `envconfig:"TILLDESK_CARTSTORE_BACKEND" default:"redis"`
}

const (
	CartStoreBackendRedis = "redis"
	CartStoreBackendDB    = "db"
)

type CheckoutConfig struct {
	IdempotencyTTL     time.Duration `envconfig:"TILLDESK_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
	SaveIdempotencyTTL time.Duration `envconfig:"TILLDESK_CART_SAVE_IDEMPOTENCY_TTL" default:"24h"`
	RateLimitWindow    time.Duration `envconfig:"TILLDESK_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitMax       int           `envconfig:"TILLDESK_CHECKOUT_RATE_LIMIT_MAX" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TILLDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TILLDESK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TILLDESK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TILLDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TILLDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SalesTopic        string `envconfig:"TILLDESK_PUBSUB_SALES_TOPIC" default:"td-sales-events"`
	SalesSubscription string `envconfig:"TILLDESK_PUBSUB_SALES_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset        string `envconfig:"TILLDESK_BIGQUERY_DATASET" default:"tilldesk"`
	SalesFactTable string `envconfig:"TILLDESK_BIGQUERY_SALES_TABLE" default:"sales_facts"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"TILLDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"TILLDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"TILLDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"TILLDESK_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
	Retention      time.Duration `envconfig:"TILLDESK_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Enabled  bool          `envconfig:"TILLDESK_CRON_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"TILLDESK_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"TILLDESK_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || strings.EqualFold(db.Driver, "sqlite") {
		// SQLite DSNs are file paths; nothing to assemble.
		if db.DSN == "" {
			db.DSN = "file:tilldesk.db"
		}
		return nil
	}

	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
