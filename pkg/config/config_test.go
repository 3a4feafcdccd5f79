package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clientbill/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "BRL", cfg.Billing.Currency)
	assert.Equal(t, 0.05, cfg.Billing.PaymentTolerance)
	assert.Equal(t, 2, cfg.Billing.InstallmentBatchSize)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CLIENTBILL_PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://db/app")
	t.Setenv("CLIENTBILL_PAYMENT_TOLERANCE", "0.1")
	t.Setenv("CLIENTBILL_LOG_LEVEL", "debug")
	t.Setenv("CLIENTBILL_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CLIENTBILL_REQUEST_TIMEOUT", "5s")
	t.Setenv("CLIENTBILL_RATE_LIMIT_PER_MINUTE", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "postgres://db/app", cfg.Database.URL)
	assert.Equal(t, 0.1, cfg.Billing.PaymentTolerance)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 0, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, 60, cfg.Server.RateLimitBurst)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clientbill.yaml")
	content := `
server:
  port: "7070"
billing:
  currency: USD
  installment_batch_size: 3
cache:
  report_ttl: 90s
automation:
  timezone: UTC
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CLIENTBILL_CONFIG_FILE", path)
	t.Setenv("CLIENTBILL_CURRENCY", "EUR")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "EUR", cfg.Billing.Currency, "env wins over file")
	assert.Equal(t, 3, cfg.Billing.InstallmentBatchSize)
	assert.Equal(t, 90*time.Second, cfg.Cache.ReportTTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CLIENTBILL_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty database", func(c *Config) { c.Database.URL = "" }},
		{"min above max", func(c *Config) { c.Database.MinConns = 50 }},
		{"tolerance too high", func(c *Config) { c.Billing.PaymentTolerance = 1 }},
		{"negative tolerance", func(c *Config) { c.Billing.PaymentTolerance = -0.1 }},
		{"zero batch", func(c *Config) { c.Billing.InstallmentBatchSize = 0 }},
		{"bad timezone", func(c *Config) { c.Automation.Timezone = "Mars/Olympus" }},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
