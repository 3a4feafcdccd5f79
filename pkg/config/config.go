package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // automation timezone must resolve on minimal images

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/clientbill/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Cache         CacheConfig         `yaml:"cache"`
	Billing       BillingConfig       `yaml:"billing"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Automation    AutomationConfig    `yaml:"automation"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`

	// RateLimitPerMinute caps tenant requests per organization; 0 disables the limit
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	ReplicaURLs     []string      `yaml:"replica_urls"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	Timeout         time.Duration `yaml:"timeout"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

// RedisConfig holds the optional Redis connection used by the report cache
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// CacheConfig holds report cache settings
type CacheConfig struct {
	ReportTTL time.Duration `yaml:"report_ttl"`
	LRUSize   int           `yaml:"lru_size"`
}

// BillingConfig holds billing rule parameters
type BillingConfig struct {
	Currency             string  `yaml:"currency"`
	PaymentTolerance     float64 `yaml:"payment_tolerance"`
	InstallmentBatchSize int     `yaml:"installment_batch_size"`
}

// NotificationsConfig holds outbound channel credentials. Empty credentials disable a channel.
type NotificationsConfig struct {
	ResendAPIKey   string        `yaml:"resend_api_key"`
	ResendBaseURL  string        `yaml:"resend_base_url"`
	EmailFrom      string        `yaml:"email_from"`
	WhatsAppURL    string        `yaml:"whatsapp_url"`
	WhatsAppToken  string        `yaml:"whatsapp_token"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// AutomationConfig holds scheduler settings
type AutomationConfig struct {
	MonthlySchedule string `yaml:"monthly_schedule"`
	OverdueSchedule string `yaml:"overdue_schedule"`
	Timezone        string `yaml:"timezone"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel `yaml:"-"`
	// LogLevelName is the raw level read from YAML or env
	LogLevelName string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxBodyBytes:    1 << 20,
			AllowedOrigins:  []string{"*"},

			RateLimitPerMinute: 600,
			RateLimitBurst:     60,
		},
		Database: DatabaseConfig{
			URL:             "postgres://localhost/clientbill?sslmode=disable",
			MaxConns:        20,
			MinConns:        5,
			Timeout:         5 * time.Second,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			MigrateOnStart:  true,
		},
		Cache: CacheConfig{
			ReportTTL: 5 * time.Minute,
			LRUSize:   512,
		},
		Billing: BillingConfig{
			Currency:             "BRL",
			PaymentTolerance:     0.05,
			InstallmentBatchSize: 2,
		},
		Notifications: NotificationsConfig{
			ResendBaseURL:  "https://api.resend.com",
			EmailFrom:      "financeiro@clientbill.local",
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
		},
		Automation: AutomationConfig{
			MonthlySchedule: "0 6 * * *",
			OverdueSchedule: "0 * * * *",
			Timezone:        "America/Sao_Paulo",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "clientbill",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file named by
// CLIENTBILL_CONFIG_FILE, and environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv("CLIENTBILL_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("CLIENTBILL_HOST", s.Host)
	s.Port = getEnv("CLIENTBILL_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("CLIENTBILL_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("CLIENTBILL_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("CLIENTBILL_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("CLIENTBILL_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.RequestTimeout = getEnvDuration("CLIENTBILL_REQUEST_TIMEOUT", s.RequestTimeout)
	s.MaxBodyBytes = getEnvInt64("CLIENTBILL_MAX_BODY_BYTES", s.MaxBodyBytes)
	if origins := getEnv("CLIENTBILL_ALLOWED_ORIGINS", ""); origins != "" {
		s.AllowedOrigins = splitList(origins)
	}
	s.RateLimitPerMinute = getEnvInt("CLIENTBILL_RATE_LIMIT_PER_MINUTE", s.RateLimitPerMinute)
	s.RateLimitBurst = getEnvInt("CLIENTBILL_RATE_LIMIT_BURST", s.RateLimitBurst)

	d := &c.Database
	d.URL = getEnv("DATABASE_URL", d.URL)
	d.URL = getEnv("CLIENTBILL_DATABASE_URL", d.URL)
	if replicas := getEnv("CLIENTBILL_DATABASE_REPLICA_URLS", ""); replicas != "" {
		d.ReplicaURLs = splitList(replicas)
	}
	d.MaxConns = getEnvInt("CLIENTBILL_DB_MAX_CONNS", d.MaxConns)
	d.MinConns = getEnvInt("CLIENTBILL_DB_MIN_CONNS", d.MinConns)
	d.Timeout = getEnvDuration("CLIENTBILL_DB_TIMEOUT", d.Timeout)
	d.MigrateOnStart = getEnvBool("CLIENTBILL_DB_MIGRATE", d.MigrateOnStart)

	r := &c.Redis
	r.URL = getEnv("CLIENTBILL_REDIS_URL", r.URL)
	r.Password = getEnv("CLIENTBILL_REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("CLIENTBILL_REDIS_DB", r.DB)
	r.PoolSize = getEnvInt("CLIENTBILL_REDIS_POOL_SIZE", r.PoolSize)

	c.Cache.ReportTTL = getEnvDuration("CLIENTBILL_REPORT_CACHE_TTL", c.Cache.ReportTTL)
	c.Cache.LRUSize = getEnvInt("CLIENTBILL_LRU_SIZE", c.Cache.LRUSize)

	b := &c.Billing
	b.Currency = getEnv("CLIENTBILL_CURRENCY", b.Currency)
	b.PaymentTolerance = getEnvFloat("CLIENTBILL_PAYMENT_TOLERANCE", b.PaymentTolerance)
	b.InstallmentBatchSize = getEnvInt("CLIENTBILL_INSTALLMENT_BATCH_SIZE", b.InstallmentBatchSize)

	n := &c.Notifications
	n.ResendAPIKey = getEnv("RESEND_API_KEY", n.ResendAPIKey)
	n.ResendBaseURL = getEnv("CLIENTBILL_RESEND_BASE_URL", n.ResendBaseURL)
	n.EmailFrom = getEnv("CLIENTBILL_EMAIL_FROM", n.EmailFrom)
	n.WhatsAppURL = getEnv("CLIENTBILL_WHATSAPP_URL", n.WhatsAppURL)
	n.WhatsAppToken = getEnv("CLIENTBILL_WHATSAPP_TOKEN", n.WhatsAppToken)
	n.MaxAttempts = getEnvInt("CLIENTBILL_NOTIFY_MAX_ATTEMPTS", n.MaxAttempts)
	n.InitialBackoff = getEnvDuration("CLIENTBILL_NOTIFY_BACKOFF", n.InitialBackoff)

	a := &c.Automation
	a.MonthlySchedule = getEnv("CLIENTBILL_MONTHLY_SCHEDULE", a.MonthlySchedule)
	a.OverdueSchedule = getEnv("CLIENTBILL_OVERDUE_SCHEDULE", a.OverdueSchedule)
	a.Timezone = getEnv("CLIENTBILL_TIMEZONE", a.Timezone)

	o := &c.Observability
	o.LogLevelName = getEnv("CLIENTBILL_LOG_LEVEL", o.LogLevelName)
	o.MetricsEnabled = getEnvBool("CLIENTBILL_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("CLIENTBILL_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("CLIENTBILL_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("CLIENTBILL_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("CLIENTBILL_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("CLIENTBILL_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database min conns (%d) exceeds max conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Billing.Currency == "" {
		return fmt.Errorf("billing currency is required")
	}
	if c.Billing.PaymentTolerance < 0 || c.Billing.PaymentTolerance >= 1 {
		return fmt.Errorf("payment tolerance must be in [0, 1), got %v", c.Billing.PaymentTolerance)
	}
	if c.Billing.InstallmentBatchSize <= 0 {
		return fmt.Errorf("installment batch size must be positive")
	}
	if _, err := time.LoadLocation(c.Automation.Timezone); err != nil {
		return fmt.Errorf("invalid automation timezone %q: %w", c.Automation.Timezone, err)
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// Location returns the automation timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Automation.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OTel converts the observability settings for observability.InitTracing
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
	}
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
