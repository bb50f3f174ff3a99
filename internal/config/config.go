// Package config provides application configuration loaded from the environment
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Auth      AuthConfig
	Numbering NumberingConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds connection settings. Driver is "postgres" or "sqlite";
// for sqlite, Path is the database file (":memory:" allowed).
type DatabaseConfig struct {
	Driver          string
	DSN             string // overrides the discrete fields when set
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	RetryDelay      time.Duration
	SlowThreshold   time.Duration
	Debug           bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env                string
	Dev                bool
	Migrations         bool
	Seed               bool
	DefaultCurrency    string
	ClientDeletePolicy string // orphan, restrict or cascade
}

// AuthConfig holds session and admin token settings.
type AuthConfig struct {
	SessionSecret    string
	SessionTTL       time.Duration
	SecureCookies    bool
	AdminTokenSecret string
	AdminTokenTTL    time.Duration
	AdminTokenIssuer string
}

// NumberingConfig controls document number formatting.
type NumberingConfig struct {
	InvoicePrefix string
	QuotePrefix   string
	ReceiptPrefix string
	Padding       int
	MaxRetries    int
}

// RedisConfig enables the shared admin token revocation list when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig enables archiving of exported PDFs to S3-compatible storage.
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

const (
	devSessionSecret = "devsessionsecret"
	devAdminSecret   = "devadminsecret"
)

// DSNString returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSNString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format, as golang-migrate expects.
func (d DatabaseConfig) URL() string {
	if strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://") {
		return d.DSN
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// IsProduction reports whether the app runs with production safeguards.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// binding maps a config key to the environment variable that overrides it.
type binding struct {
	key string
	env string
	def any
}

var bindings = []binding{
	{"server.port", "PORT", "8080"},
	{"server.read_timeout", "SERVER_READ_TIMEOUT", "15s"},
	{"server.write_timeout", "SERVER_WRITE_TIMEOUT", "30s"},
	{"server.idle_timeout", "SERVER_IDLE_TIMEOUT", "60s"},

	{"database.driver", "DB_DRIVER", "postgres"},
	{"database.dsn", "DATABASE_DSN", ""},
	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", 5432},
	{"database.user", "DB_USER", "invoices"},
	{"database.password", "DB_PASSWORD", "invoices123"},
	{"database.dbname", "DB_NAME", "invoices"},
	{"database.sslmode", "DB_SSLMODE", "disable"},
	{"database.path", "DB_PATH", "invoices.db"},
	{"database.max_open_conns", "DB_MAX_OPEN_CONNS", 25},
	{"database.max_idle_conns", "DB_MAX_IDLE_CONNS", 5},
	{"database.conn_max_lifetime", "DB_CONN_MAX_LIFETIME", "1h"},
	{"database.connect_retries", "DB_CONNECT_RETRIES", 10},
	{"database.retry_delay", "DB_RETRY_DELAY", "2s"},
	{"database.slow_threshold", "DB_SLOW_THRESHOLD", "200ms"},
	{"database.debug", "DB_DEBUG", false},

	{"app.env", "APP_ENV", "development"},
	{"app.migrations", "MIGRATIONS", false},
	{"app.seed", "DB_SEED", false},
	{"app.default_currency", "DEFAULT_CURRENCY", "EUR"},
	{"app.client_delete_policy", "CLIENT_DELETE_POLICY", "orphan"},

	{"auth.session_secret", "SESSION_SECRET", devSessionSecret},
	{"auth.session_ttl", "SESSION_TTL", "336h"},
	{"auth.secure_cookies", "SECURE_COOKIES", false},
	{"auth.admin_token_secret", "ADMIN_TOKEN_SECRET", devAdminSecret},
	{"auth.admin_token_ttl", "ADMIN_TOKEN_TTL", "8h"},
	{"auth.admin_token_issuer", "ADMIN_TOKEN_ISSUER", "flow-invoice"},

	{"numbering.invoice_prefix", "INVOICE_PREFIX", "INV"},
	{"numbering.quote_prefix", "QUOTE_PREFIX", "QUO"},
	{"numbering.receipt_prefix", "RECEIPT_PREFIX", "REC"},
	{"numbering.padding", "NUMBER_PADDING", 4},
	{"numbering.max_retries", "NUMBER_MAX_RETRIES", 5},

	{"redis.addr", "REDIS_ADDR", ""},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},

	{"storage.enabled", "STORAGE_ENABLED", false},
	{"storage.endpoint", "STORAGE_ENDPOINT", ""},
	{"storage.region", "STORAGE_REGION", "us-east-1"},
	{"storage.bucket", "STORAGE_BUCKET", ""},
	{"storage.prefix", "STORAGE_PREFIX", "exports"},
	{"storage.access_key", "STORAGE_ACCESS_KEY", ""},
	{"storage.secret_key", "STORAGE_SECRET_KEY", ""},
	{"storage.use_path_style", "STORAGE_USE_PATH_STYLE", true},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", ""},
	{"log.output", "LOG_OUTPUT", "stdout"},
}

// Load reads configuration with the precedence: environment variable >
// config file (config.yaml/json/toml in . or ./config) > default.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			IdleTimeout:  v.GetDuration("server.idle_timeout"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			DSN:             strings.Trim(strings.TrimSpace(v.GetString("database.dsn")), `"'`),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnectRetries:  v.GetInt("database.connect_retries"),
			RetryDelay:      v.GetDuration("database.retry_delay"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
			Debug:           v.GetBool("database.debug"),
		},
		App: AppConfig{
			Env:                strings.ToLower(v.GetString("app.env")),
			Migrations:         v.GetBool("app.migrations"),
			Seed:               v.GetBool("app.seed"),
			DefaultCurrency:    strings.ToUpper(v.GetString("app.default_currency")),
			ClientDeletePolicy: strings.ToLower(v.GetString("app.client_delete_policy")),
		},
		Auth: AuthConfig{
			SessionSecret:    v.GetString("auth.session_secret"),
			SessionTTL:       v.GetDuration("auth.session_ttl"),
			SecureCookies:    v.GetBool("auth.secure_cookies"),
			AdminTokenSecret: v.GetString("auth.admin_token_secret"),
			AdminTokenTTL:    v.GetDuration("auth.admin_token_ttl"),
			AdminTokenIssuer: v.GetString("auth.admin_token_issuer"),
		},
		Numbering: NumberingConfig{
			InvoicePrefix: v.GetString("numbering.invoice_prefix"),
			QuotePrefix:   v.GetString("numbering.quote_prefix"),
			ReceiptPrefix: v.GetString("numbering.receipt_prefix"),
			Padding:       v.GetInt("numbering.padding"),
			MaxRetries:    v.GetInt("numbering.max_retries"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			Prefix:       v.GetString("storage.prefix"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}
	cfg.App.Dev = cfg.App.Env != "production"
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
		if cfg.App.Dev {
			cfg.Log.Format = "console"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}
	switch c.App.ClientDeletePolicy {
	case "orphan", "restrict", "cascade":
	default:
		errs = append(errs, fmt.Errorf("CLIENT_DELETE_POLICY must be orphan, restrict or cascade, got %q", c.App.ClientDeletePolicy))
	}
	if len(c.App.DefaultCurrency) != 3 {
		errs = append(errs, fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", c.App.DefaultCurrency))
	}
	if c.Numbering.Padding < 1 || c.Numbering.Padding > 12 {
		errs = append(errs, fmt.Errorf("NUMBER_PADDING must be between 1 and 12, got %d", c.Numbering.Padding))
	}
	if c.Numbering.MaxRetries < 1 {
		errs = append(errs, errors.New("NUMBER_MAX_RETRIES must be at least 1"))
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.AdminTokenTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL and ADMIN_TOKEN_TTL must be positive"))
	}
	if c.IsProduction() {
		if c.Auth.SessionSecret == devSessionSecret || len(c.Auth.SessionSecret) < 32 {
			errs = append(errs, errors.New("SESSION_SECRET must be set to at least 32 characters in production"))
		}
		if c.Auth.AdminTokenSecret == devAdminSecret || len(c.Auth.AdminTokenSecret) < 32 {
			errs = append(errs, errors.New("ADMIN_TOKEN_SECRET must be set to at least 32 characters in production"))
		}
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET is required when STORAGE_ENABLED is set"))
	}
	return errors.Join(errs...)
}
