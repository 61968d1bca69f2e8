package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	Remote   RemoteConfig
	Cache    CacheConfig
	Sync     SyncConfig
	Redis    RedisConfig
	Payments PaymentsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POSEDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"POSEDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POSEDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSEDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig points the durable store at its SQLite file.
type StoreConfig struct {
	Path        string `envconfig:"POSEDGE_STORE_PATH" default:"posedge.db"`
	AutoMigrate bool   `envconfig:"POSEDGE_STORE_AUTO_MIGRATE" default:"true"`
}

// RemoteConfig describes the upstream commerce backend.
type RemoteConfig struct {
	BaseURL       string        `envconfig:"POSEDGE_REMOTE_BASE_URL" required:"true"`
	CompanyPrefix string        `envconfig:"POSEDGE_REMOTE_COMPANY_PREFIX"`
	BranchCode    string        `envconfig:"POSEDGE_REMOTE_BRANCH_CODE"`
	UserID        string        `envconfig:"POSEDGE_REMOTE_USER_ID"`
	Timeout       time.Duration `envconfig:"POSEDGE_REMOTE_TIMEOUT" default:"10s"`
	RetryAttempts uint64        `envconfig:"POSEDGE_REMOTE_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff  time.Duration `envconfig:"POSEDGE_REMOTE_RETRY_BACKOFF" default:"500ms"`
}

// CacheConfig carries the staleness policy per cached collection.
type CacheConfig struct {
	CatalogTTL       time.Duration `envconfig:"POSEDGE_CACHE_CATALOG_TTL" default:"24h"`
	SiteInventoryTTL time.Duration `envconfig:"POSEDGE_CACHE_SITE_INVENTORY_TTL" default:"30m"`
}

type SyncConfig struct {
	Enabled  bool          `envconfig:"POSEDGE_SYNC_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"POSEDGE_SYNC_INTERVAL" default:"1m"`
}

// RedisConfig is optional: only multi-lane sites share a Redis instance for
// sync idempotency.
type RedisConfig struct {
	URL          string        `envconfig:"POSEDGE_REDIS_URL"`
	Address      string        `envconfig:"POSEDGE_REDIS_ADDR"`
	Password     string        `envconfig:"POSEDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSEDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSEDGE_REDIS_POOL_SIZE" default:"5"`
	DialTimeout  time.Duration `envconfig:"POSEDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSEDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSEDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type PaymentsConfig struct {
	CashTypes []string `envconfig:"POSEDGE_PAYMENTS_CASH_TYPES" default:"CASH"`
}
