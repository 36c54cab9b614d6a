package config

import "time"

// PriceFeedConfig configures the websocket price push
type PriceFeedConfig struct {
	UpdateInterval    time.Duration `yaml:"update_interval"`      // Periodic push to subscribed clients
	WriteTimeout      time.Duration `yaml:"write_timeout"`        // Deadline for a single websocket write
	PongWait          time.Duration `yaml:"pong_wait"`            // Connection is dropped without a pong for this long
	MaxCoinsPerClient int           `yaml:"max_coins_per_client"` // Upper bound of subscribed coins per connection
}

// DefaultPriceFeedConfig returns default websocket push configuration
func DefaultPriceFeedConfig() PriceFeedConfig {
	return PriceFeedConfig{
		UpdateInterval:    30 * time.Second,
		WriteTimeout:      10 * time.Second,
		PongWait:          60 * time.Second,
		MaxCoinsPerClient: 250,
	}
}

// PortfolioConfig selects the portfolio store
type PortfolioConfig struct {
	Driver      string `yaml:"driver"`       // "memory" or "postgres"
	DatabaseURL string `yaml:"database_url"` // lib/pq connection string for postgres
}
