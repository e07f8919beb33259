package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tripcart/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TRIPCART_PRICING_KEY", "secret-key")

	yamlContent := `
database:
  path: "test.db"
pricing:
  base_url: "http://pricing.local"
  api_key: "${TRIPCART_PRICING_KEY}"
  timeout: 3s
api:
  auth:
    enabled: true
    api_keys:
      - key: "k1"
        name: "web"
        permissions: ["read", "write"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.Pricing.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Pricing.Timeout)
	assert.InDelta(t, 0.18, cfg.Pricing.TaxRate, 1e-9)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "web", cfg.API.Auth.APIKeys[0].Name)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		return Config{
			Database: DatabaseConfig{Path: "path"},
			Pricing:  PricingConfig{BaseURL: "http://pricing", TaxRate: 0.18},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "missing pricing url", mutate: func(c *Config) { c.Pricing.BaseURL = "" }, wantErr: true},
		{name: "tax rate too high", mutate: func(c *Config) { c.Pricing.TaxRate = 1.5 }, wantErr: true},
		{name: "negative tax rate", mutate: func(c *Config) { c.Pricing.TaxRate = -0.1 }, wantErr: true},
		{name: "auth without keys", mutate: func(c *Config) { c.API.Auth.Enabled = true }, wantErr: true},
		{name: "negative search limit", mutate: func(c *Config) { c.Session.SearchRateLimit = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.InDelta(t, 0.18, cfg.Pricing.TaxRate, 1e-9)
	assert.Equal(t, time.Hour, cfg.Pricing.PredictionCacheTTL)
	assert.Equal(t, "0000", cfg.Payment.DeclineSuffix)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, models.DefaultSearchRateLimit, cfg.Session.SearchRateLimit)
	assert.Equal(t, time.Minute, cfg.Session.SearchRateWindow)
	assert.Equal(t, "Bookings", cfg.Google.SheetName)
	assert.Equal(t, 0, cfg.Monitoring.PrometheusPort)

	cfg = &Config{Monitoring: MonitoringConfig{PrometheusEnabled: true}}
	cfg.applyDefaults()
	assert.Equal(t, 9090, cfg.Monitoring.PrometheusPort)
}
