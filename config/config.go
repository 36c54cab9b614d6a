package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/status-im/portfolio-proxy/cache"
)

type Config struct {
	Port            string                 `yaml:"port"`
	Cache           cache.Config           `yaml:"cache"`
	CoingeckoPrices CoingeckoPricesFetcher `yaml:"coingecko_prices"`
	APIKeys         APIKeyConfig           `yaml:"api_keys"`
	Relay           RelayConfig            `yaml:"relay"`
	PriceFeed       PriceFeedConfig        `yaml:"price_feed"`
	Portfolio       PortfolioConfig        `yaml:"portfolio"`
	TokensFile      string                 `yaml:"tokens_file"`
	APITokens       *APITokens             `yaml:"-"`

	OverrideCoingeckoPublicURL string `yaml:"override_coingecko_public_url"`
	OverrideCoingeckoProURL    string `yaml:"override_coingecko_pro_url"`
}

// DefaultConfig returns a configuration that works without a config file
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		Cache:           cache.DefaultCacheConfig(),
		CoingeckoPrices: DefaultCoingeckoPricesFetcher(),
		Relay:           DefaultRelayConfig(),
		PriceFeed:       DefaultPriceFeedConfig(),
		Portfolio:       PortfolioConfig{Driver: "memory"},
		APITokens:       &APITokens{Tokens: []string{}},
	}
}

// LoadConfig reads the yaml file at path over the defaults, loads API tokens
// and applies environment overrides
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	apiTokens, err := LoadAPITokens(config.TokensFile)
	if err != nil {
		log.Printf("Warning: Error loading API tokens from %s: %v. Using public API without authentication.",
			config.TokensFile, err)
		config.APITokens = &APITokens{Tokens: []string{}}
	} else {
		config.APITokens = apiTokens
	}

	ApplyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault is LoadConfig that falls back to DefaultConfig, with
// environment overrides, when path does not exist
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("Config: %s not found, using defaults", path)
		config := DefaultConfig()
		ApplyEnvOverrides(config)
		if err := config.Validate(); err != nil {
			return nil, err
		}
		return config, nil
	}
	return LoadConfig(path)
}

// ApplyEnvOverrides overrides deployment specific settings from the environment.
//
// Recognised variables:
//   - PORT
//   - COINGECKO_API_KEY, COINGECKO_DEMO_API_KEY (added in front of the tokens file keys)
//   - REDIS_ADDR, REDIS_PASSWORD (REDIS_ADDR also enables redis)
//   - DATABASE_URL (switches the portfolio store to postgres)
//   - RELAY_ENABLED
func ApplyEnvOverrides(config *Config) {
	v := viper.New()
	v.AutomaticEnv()

	v.BindEnv("port", "PORT")
	v.BindEnv("coingecko_api_key", "COINGECKO_API_KEY")
	v.BindEnv("coingecko_demo_api_key", "COINGECKO_DEMO_API_KEY")
	v.BindEnv("redis_addr", "REDIS_ADDR")
	v.BindEnv("redis_password", "REDIS_PASSWORD")
	v.BindEnv("database_url", "DATABASE_URL")
	v.BindEnv("relay_enabled", "RELAY_ENABLED")

	if port := v.GetString("port"); port != "" {
		config.Port = port
	}

	if config.APITokens == nil {
		config.APITokens = &APITokens{Tokens: []string{}}
	}
	if key := strings.TrimSpace(v.GetString("coingecko_api_key")); key != "" {
		config.APITokens.Tokens = append([]string{key}, config.APITokens.Tokens...)
	}
	if key := strings.TrimSpace(v.GetString("coingecko_demo_api_key")); key != "" {
		config.APITokens.DemoTokens = append([]string{key}, config.APITokens.DemoTokens...)
	}

	if addr := v.GetString("redis_addr"); addr != "" {
		config.Cache.Redis.Enabled = true
		config.Cache.Redis.Addr = addr
	}
	if password := v.GetString("redis_password"); password != "" {
		config.Cache.Redis.Password = password
	}

	if dsn := v.GetString("database_url"); dsn != "" {
		config.Portfolio.Driver = "postgres"
		config.Portfolio.DatabaseURL = dsn
	}

	if v.IsSet("relay_enabled") {
		config.Relay.Enabled = v.GetBool("relay_enabled")
	}
}

// Validate checks the sections that have constraints
func (c *Config) Validate() error {
	if err := c.CoingeckoPrices.Validate(); err != nil {
		return fmt.Errorf("coingecko_prices: %w", err)
	}
	if c.Relay.Enabled && c.Relay.URL == "" {
		return fmt.Errorf("relay: url is required when enabled")
	}
	switch c.Portfolio.Driver {
	case "", "memory":
	case "postgres":
		if c.Portfolio.DatabaseURL == "" {
			return fmt.Errorf("portfolio: database_url is required for postgres")
		}
	default:
		return fmt.Errorf("portfolio: unknown driver %q", c.Portfolio.Driver)
	}
	return nil
}
