// Package config provides configuration structures for the inquire server.
package config

import (
	"fmt"
	"time"
)

// Config represents the server configuration.
type Config struct {
	// Server settings
	Address         string        `yaml:"address" json:"address"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Relational store
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Text completion
	LLM LLMConfig `yaml:"llm" json:"llm"`

	// Query cache
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Connection pool configuration
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool" json:"connection_pool"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Health check configuration
	Health HealthConfig `yaml:"health" json:"health"`

	// Authentication for admin routes
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Cross-origin access for the browser client
	CORS CORSConfig `yaml:"cors" json:"cors"`
}

// DatabaseConfig locates the DuckDB database. DSNs of the form
// motherduck://db or md:db open a MotherDuck database with MotherDuckToken.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" json:"dsn"`
	Schema          string `yaml:"schema" json:"schema"`
	MotherDuckToken string `yaml:"motherduck_token" json:"-"`
}

// LLMConfig configures the Gemini completer. An empty APIKey disables it.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key" json:"-"`
	Model   string        `yaml:"model" json:"model"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// CacheConfig represents cache configuration.
type CacheConfig struct {
	Capacity        int           `yaml:"capacity" json:"capacity"`
	TTL             time.Duration `yaml:"ttl" json:"ttl"`
	SchemaTTL       time.Duration `yaml:"schema_ttl" json:"schema_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// ConnectionPoolConfig represents connection pool configuration.
type ConnectionPoolConfig struct {
	MaxOpenConnections      int           `yaml:"max_open_connections" json:"max_open_connections"`
	MaxIdleConnections      int           `yaml:"max_idle_connections" json:"max_idle_connections"`
	ConnMaxLifetime         time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime         time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	HealthCheckPeriod       time.Duration `yaml:"health_check_period" json:"health_check_period"`
	ConnectionTimeout       time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
	SlowQueryThreshold      time.Duration `yaml:"slow_query_threshold" json:"slow_query_threshold"`
	EnableCircuitBreaker    bool          `yaml:"enable_circuit_breaker" json:"enable_circuit_breaker"`
	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold" json:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `yaml:"circuit_breaker_timeout" json:"circuit_breaker_timeout"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Address   string `yaml:"address" json:"address"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// HealthConfig represents health check configuration. Address is the
// listen address of the gRPC health service.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// AuthConfig represents authentication configuration.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Type    string `yaml:"type" json:"type"` // bearer, jwt

	// Bearer token auth
	BearerAuth BearerAuthConfig `yaml:"bearer_auth" json:"bearer_auth"`

	// JWT auth
	JWTAuth JWTAuthConfig `yaml:"jwt_auth" json:"jwt_auth"`
}

// BearerAuthConfig represents bearer token authentication configuration.
type BearerAuthConfig struct {
	Tokens map[string]string `yaml:"tokens" json:"-"` // token -> username
}

// JWTAuthConfig represents JWT authentication configuration.
type JWTAuthConfig struct {
	Secret        string `yaml:"secret" json:"-"`
	PublicKeyFile string `yaml:"public_key_file" json:"public_key_file"` // PEM, RSA or ECDSA
	Issuer        string `yaml:"issuer" json:"issuer"`
	Audience      string `yaml:"audience" json:"audience"`
}

// CORSConfig lists the origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// Validate validates the configuration and fills unset values with defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	def := DefaultConfig()

	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.Database.Schema == "" {
		c.Database.Schema = def.Database.Schema
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = def.LLM.Timeout
	}

	// Cache
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache capacity cannot be negative")
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = def.Cache.Capacity
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.SchemaTTL <= 0 {
		c.Cache.SchemaTTL = def.Cache.SchemaTTL
	}

	// Validate auth
	if c.Auth.Enabled {
		switch c.Auth.Type {
		case "bearer":
			if len(c.Auth.BearerAuth.Tokens) == 0 {
				return fmt.Errorf("bearer auth requires tokens")
			}
		case "jwt":
			if c.Auth.JWTAuth.Secret == "" && c.Auth.JWTAuth.PublicKeyFile == "" {
				return fmt.Errorf("JWT auth requires a secret or a public key file")
			}
		default:
			return fmt.Errorf("unsupported auth type: %s", c.Auth.Type)
		}
	}

	// Set defaults for connection pool
	if c.ConnectionPool.MaxOpenConnections <= 0 {
		c.ConnectionPool.MaxOpenConnections = def.ConnectionPool.MaxOpenConnections
	}
	if c.ConnectionPool.MaxIdleConnections <= 0 {
		c.ConnectionPool.MaxIdleConnections = def.ConnectionPool.MaxIdleConnections
	}
	if c.ConnectionPool.ConnMaxLifetime <= 0 {
		c.ConnectionPool.ConnMaxLifetime = def.ConnectionPool.ConnMaxLifetime
	}
	if c.ConnectionPool.ConnMaxIdleTime <= 0 {
		c.ConnectionPool.ConnMaxIdleTime = def.ConnectionPool.ConnMaxIdleTime
	}
	if c.ConnectionPool.HealthCheckPeriod <= 0 {
		c.ConnectionPool.HealthCheckPeriod = def.ConnectionPool.HealthCheckPeriod
	}
	if c.ConnectionPool.ConnectionTimeout <= 0 {
		c.ConnectionPool.ConnectionTimeout = def.ConnectionPool.ConnectionTimeout
	}
	if c.ConnectionPool.CircuitBreakerThreshold <= 0 {
		c.ConnectionPool.CircuitBreakerThreshold = def.ConnectionPool.CircuitBreakerThreshold
	}
	if c.ConnectionPool.CircuitBreakerTimeout <= 0 {
		c.ConnectionPool.CircuitBreakerTimeout = def.ConnectionPool.CircuitBreakerTimeout
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = def.Metrics.Address
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Health.Enabled && c.Health.Address == "" {
		c.Health.Address = def.Health.Address
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         "0.0.0.0:3001",
		LogLevel:        "info",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0, // completions can be slow
		ShutdownTimeout: 30 * time.Second,
		Database: DatabaseConfig{
			DSN:    "inquire.duckdb",
			Schema: "main",
		},
		LLM: LLMConfig{
			Model:   "gemini-1.5-flash",
			Timeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			Capacity:        100,
			TTL:             5 * time.Minute,
			SchemaTTL:       30 * time.Minute,
			CleanupInterval: 1 * time.Minute,
		},
		ConnectionPool: ConnectionPoolConfig{
			MaxOpenConnections:      25,
			MaxIdleConnections:      5,
			ConnMaxLifetime:         30 * time.Minute,
			ConnMaxIdleTime:         10 * time.Minute,
			HealthCheckPeriod:       1 * time.Minute,
			ConnectionTimeout:       30 * time.Second,
			SlowQueryThreshold:      1 * time.Second,
			EnableCircuitBreaker:    true,
			CircuitBreakerThreshold: 5,
			CircuitBreakerTimeout:   30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Address:   ":9090",
			Namespace: "inquire",
		},
		Health: HealthConfig{
			Enabled: true,
			Address: ":8086",
		},
		Auth: AuthConfig{
			Enabled: false,
			Type:    "jwt",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}
