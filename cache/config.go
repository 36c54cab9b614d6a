package cache

import "time"

// Config represents cache configuration
type Config struct {
	// GoCache configuration
	GoCache GoCacheConfig `yaml:"go_cache"`

	// Redis configuration, shared store for several instances
	Redis RedisConfig `yaml:"redis"`
}

// GoCacheConfig configuration for in-memory go-cache
type GoCacheConfig struct {
	// DefaultExpiration default expiration time for cache items
	// If 0, items never expire by default
	DefaultExpiration time.Duration `yaml:"default_expiration"`

	// CleanupInterval interval for cleaning up expired items
	// Should be less than DefaultExpiration
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// Enabled whether go-cache is enabled
	Enabled bool `yaml:"enabled"`
}

// RedisConfig configuration for the redis backed store
type RedisConfig struct {
	// Enabled switches the store and the locks to redis
	Enabled bool `yaml:"enabled"`

	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// KeyPrefix is prepended to every key, lets several deployments share one redis
	KeyPrefix string `yaml:"key_prefix"`

	// DialTimeout bounds connecting and the startup ping
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() Config {
	return Config{
		GoCache: GoCacheConfig{
			DefaultExpiration: 5 * time.Minute,
			CleanupInterval:   10 * time.Minute,
			Enabled:           true,
		},
		Redis: RedisConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			KeyPrefix:   "portfolio_proxy:",
			DialTimeout: 5 * time.Second,
		},
	}
}
