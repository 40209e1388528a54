package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends understood by the server.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	// HTTP server
	Server ServerConfig `mapstructure:"server"`

	// Link store selection
	Store StoreConfig `mapstructure:"store"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// SQLite (single node / development)
	SQLite SQLiteConfig `mapstructure:"sqlite"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Rate limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Share link behaviour
	Share ShareConfig `mapstructure:"share"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type StoreConfig struct {
	Type string `mapstructure:"type"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
}

// ShareConfig tunes link creation and redemption.
type ShareConfig struct {
	// FreshnessHorizon bounds how far ahead a burn-after-reading link discloses codes.
	FreshnessHorizon time.Duration `mapstructure:"freshness_horizon"`
	DefaultPeriod    int64         `mapstructure:"default_period"`
	MaxCodes         int           `mapstructure:"max_codes"`
	IDLength         int           `mapstructure:"id_length"`
	DefaultExpiresIn string        `mapstructure:"default_expires_in"`
	// PurgeRetention is how long an expired link is kept so reads report it as expired.
	PurgeRetention     time.Duration `mapstructure:"purge_retention"`
	PurgeInterval      time.Duration `mapstructure:"purge_interval"`
	ExpectedLinks      uint          `mapstructure:"expected_links"`
	BloomFalsePositive float64       `mapstructure:"bloom_false_positive"`
}

// ExpiryPresets maps the accepted expiresIn values to durations.
var ExpiryPresets = map[string]time.Duration{
	"1h":  time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
	"3d":  72 * time.Hour,
}

// DefaultExpiryPreset is used for empty or unknown expiresIn values.
const DefaultExpiryPreset = "24h"

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static; a decode failure here is a programming error.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("store.type", StoreSQLite)
	v.SetDefault("sqlite.path", "powerotp.db")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)

	v.SetDefault("prometheus.enabled", false)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.key_prefix", "powerotp:ratelimit")

	v.SetDefault("share.freshness_horizon", "180s")
	v.SetDefault("share.default_period", 30)
	v.SetDefault("share.max_codes", 10080)
	v.SetDefault("share.id_length", 7)
	v.SetDefault("share.default_expires_in", DefaultExpiryPreset)
	v.SetDefault("share.purge_retention", "168h")
	v.SetDefault("share.purge_interval", "10m")
	v.SetDefault("share.expected_links", 1000000)
	v.SetDefault("share.bloom_false_positive", 0.001)
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.base_url", "BASE_URL")

	// Store
	v.BindEnv("store.type", "STORE_TYPE")
	v.BindEnv("sqlite.path", "SQLITE_PATH")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.enabled", "NATS_ENABLED")
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Rate limiting
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")

	// Prometheus
	v.BindEnv("prometheus.enabled", "PROM_ENABLED")
	v.BindEnv("prometheus.port", "PROM_PORT")

	// Share
	v.BindEnv("share.freshness_horizon", "FRESHNESS_HORIZON")
	v.BindEnv("share.purge_retention", "PURGE_RETENTION")
}

// Validate checks cross-field constraints that mapstructure cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Type {
	case StorePostgres, StoreSQLite, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid store type: %q (must be postgres, sqlite, redis or memory)", c.Store.Type)
	}

	if c.Store.Type == StoreSQLite && c.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is required when store type is %q", StoreSQLite)
	}

	if c.Share.FreshnessHorizon <= 0 {
		return fmt.Errorf("share.freshness_horizon must be positive")
	}
	if c.Share.DefaultPeriod <= 0 {
		return fmt.Errorf("share.default_period must be positive")
	}
	if c.Share.MaxCodes <= 0 {
		return fmt.Errorf("share.max_codes must be positive")
	}
	if c.Share.IDLength < 6 {
		return fmt.Errorf("share.id_length must be at least 6")
	}
	if _, ok := ExpiryPresets[c.Share.DefaultExpiresIn]; !ok {
		return fmt.Errorf("share.default_expires_in %q is not a known preset", c.Share.DefaultExpiresIn)
	}
	if c.Share.PurgeRetention < 0 {
		return fmt.Errorf("share.purge_retention must not be negative")
	}

	return nil
}

// NeedsRedis reports whether any enabled component requires a Redis client.
func (c *Config) NeedsRedis() bool {
	return c.Store.Type == StoreRedis || c.RateLimit.Enabled
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
