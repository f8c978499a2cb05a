package cache

import (
	"time"
)

// Config holds the configuration for the cache
type Config struct {
	// Capacity is the maximum number of entries held at once
	Capacity int
	// TTL is the default time-to-live for cache entries
	TTL time.Duration
	// Clock returns the current time; tests swap it for a fake
	Clock func() time.Time
	// EnableStats enables cache statistics collection
	EnableStats bool
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Capacity:    100,
		TTL:         5 * time.Minute,
		Clock:       time.Now,
		EnableStats: true,
	}
}

// WithCapacity sets the maximum number of entries
func (c *Config) WithCapacity(n int) *Config {
	c.Capacity = n
	return c
}

// WithTTL sets the default time-to-live for cache entries
func (c *Config) WithTTL(ttl time.Duration) *Config {
	c.TTL = ttl
	return c
}

// WithClock sets the time source
func (c *Config) WithClock(clock func() time.Time) *Config {
	c.Clock = clock
	return c
}

// WithStats enables or disables cache statistics
func (c *Config) WithStats(enable bool) *Config {
	c.EnableStats = enable
	return c
}

func (c *Config) normalize() {
	if c.Capacity <= 0 {
		c.Capacity = 100
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}
