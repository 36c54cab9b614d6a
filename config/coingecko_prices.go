package config

import (
	"fmt"
	"time"
)

// CoingeckoPricesFetcher represents configuration for CoinGecko prices service
type CoingeckoPricesFetcher struct {
	TTL            time.Duration `yaml:"ttl"`             // How long a fetched snapshot is fresh
	StaleRetention time.Duration `yaml:"stale_retention"` // How long it stays available as stale fallback, 0 keeps forever
	SearchTTL      time.Duration `yaml:"search_ttl"`      // Freshness of coin search results

	ChunkSize      int           `yaml:"chunk_size"`       // Number of coins to fetch in one request
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"` // Minimum spacing between upstream requests
	RequestTimeout time.Duration `yaml:"request_timeout"`  // Timeout of one upstream attempt
	MaxRetries     int           `yaml:"max_retries"`      // Upstream attempts per fetch
	BaseBackoff    time.Duration `yaml:"base_backoff"`     // Backoff before the second attempt

	LockTimeout   time.Duration `yaml:"lock_timeout"`   // Expiry of the fetch lock
	LockGrace     time.Duration `yaml:"lock_grace"`     // Added to lock_timeout to get the follower wait ceiling
	LeaderTimeout time.Duration `yaml:"leader_timeout"` // Upper bound for a leader's fetch
}

// DefaultCoingeckoPricesFetcher returns default prices configuration
func DefaultCoingeckoPricesFetcher() CoingeckoPricesFetcher {
	return CoingeckoPricesFetcher{
		TTL:            60 * time.Second,
		StaleRetention: 24 * time.Hour,
		SearchTTL:      10 * time.Minute,
		ChunkSize:      250,
		RateLimitDelay: 1200 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
		MaxRetries:     2,
		BaseBackoff:    500 * time.Millisecond,
		LockTimeout:    10 * time.Second,
		LockGrace:      2 * time.Second,
		LeaderTimeout:  30 * time.Second,
	}
}

// WaitCeiling is the longest a caller waits for another caller's fetch
func (c CoingeckoPricesFetcher) WaitCeiling() time.Duration {
	return c.LockTimeout + c.LockGrace
}

// Validate checks the prices configuration
func (c CoingeckoPricesFetcher) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	if c.StaleRetention < 0 {
		return fmt.Errorf("stale_retention must not be negative")
	}
	if c.StaleRetention > 0 && c.StaleRetention < c.TTL {
		return fmt.Errorf("stale_retention (%v) must not be shorter than ttl (%v)", c.StaleRetention, c.TTL)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.RateLimitDelay < 0 {
		return fmt.Errorf("rate_limit_delay must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive")
	}
	// The leader extends its lock while it runs, so it must be bounded
	if c.LeaderTimeout <= 0 {
		return fmt.Errorf("leader_timeout must be positive")
	}
	if c.RequestTimeout >= c.WaitCeiling() {
		return fmt.Errorf("request_timeout (%v) must be shorter than lock_timeout + lock_grace (%v)",
			c.RequestTimeout, c.WaitCeiling())
	}
	return nil
}
