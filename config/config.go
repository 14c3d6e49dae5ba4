package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// SlugColumnSize is the width of links.slug; longer slugs cannot be stored.
	SlugColumnSize = 32
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Slug       SlugConfig       `mapstructure:"slug"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
}

type AppConfig struct {
	Env     string `mapstructure:"env"`
	BaseURL string `mapstructure:"base_url"`
}

// IsDevelopment reports whether the service runs outside production.
func (c AppConfig) IsDevelopment() bool {
	return c.Env != "production"
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
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

// SlugConfig bounds the slug generator.
type SlugConfig struct {
	Length         int     `mapstructure:"length"`
	MaxLength      int     `mapstructure:"max_length"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	BloomCapacity  uint    `mapstructure:"bloom_capacity"`
	BloomFalseRate float64 `mapstructure:"bloom_false_rate"`
}

type AnalyticsConfig struct {
	AsyncClicks bool `mapstructure:"async_clicks"`
}

type ReconcilerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	Repair   bool   `mapstructure:"repair"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

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

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Slug.Length <= 0 {
		return fmt.Errorf("config: slug.length must be positive, got %d", c.Slug.Length)
	}
	if c.Slug.MaxLength < c.Slug.Length {
		return fmt.Errorf("config: slug.max_length (%d) is below slug.length (%d)", c.Slug.MaxLength, c.Slug.Length)
	}
	if c.Slug.MaxLength > SlugColumnSize {
		return fmt.Errorf("config: slug.max_length (%d) exceeds the slug column size (%d)", c.Slug.MaxLength, SlugColumnSize)
	}
	if c.Slug.MaxAttempts <= 0 {
		return fmt.Errorf("config: slug.max_attempts must be positive, got %d", c.Slug.MaxAttempts)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.sqlite_path", "shortlink.db")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl", time.Hour)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("slug.length", 6)
	v.SetDefault("slug.max_length", 20)
	v.SetDefault("slug.max_attempts", 100)
	v.SetDefault("slug.bloom_capacity", 1_000_000)
	v.SetDefault("slug.bloom_false_rate", 0.01)

	v.SetDefault("analytics.async_clicks", false)

	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.schedule", "@every 5m")
	v.SetDefault("reconciler.repair", false)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("log.level", "LOG_LEVEL")

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
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	v.BindEnv("prometheus.port", "PROM_PORT")
}
