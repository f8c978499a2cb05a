package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{
		Address:  ":3001",
		Database: DatabaseConfig{DSN: ":memory:"},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "main", cfg.Database.Schema)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Minute, cfg.Cache.SchemaTTL)
	assert.Equal(t, 25, cfg.ConnectionPool.MaxOpenConnections)
	assert.Equal(t, 5, cfg.ConnectionPool.CircuitBreakerThreshold)
	assert.False(t, cfg.ConnectionPool.EnableCircuitBreaker, "breaker stays off unless asked for")
	assert.Equal(t, "inquire", cfg.Metrics.Namespace)
	assert.Empty(t, cfg.Metrics.Address)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing address", func(c *Config) { c.Address = "" }},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"negative capacity", func(c *Config) { c.Cache.Capacity = -1 }},
		{"jwt without secret", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.Type = "jwt"
		}},
		{"bearer without tokens", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.Type = "bearer"
		}},
		{"unknown auth type", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.Type = "oauth2"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_JWTWithPublicKeyOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Type = "jwt"
	cfg.Auth.JWTAuth.PublicKeyFile = "/etc/inquire/jwt.pub"
	assert.NoError(t, cfg.Validate())
}
