package core

import (
	"context"

	"github.com/status-im/portfolio-proxy/api"
	"github.com/status-im/portfolio-proxy/cache"
	"github.com/status-im/portfolio-proxy/coingecko_prices"
	"github.com/status-im/portfolio-proxy/config"
	"github.com/status-im/portfolio-proxy/portfolio"
	"github.com/status-im/portfolio-proxy/pricefeed"
)

// SetupPrices registers the cache and the prices service, in start order
func SetupPrices(registry *Registry, cfg *config.Config) *coingecko_prices.Service {
	// Cache backs both the price store and the fetch locks
	cacheService := cache.NewService(cfg.Cache)
	registry.Register(cacheService)

	pricesService := coingecko_prices.NewService(cacheService, cacheService, cfg)
	registry.Register(pricesService)

	return pricesService
}

// Setup creates and registers all services
func Setup(ctx context.Context, cfg *config.Config) (*Registry, error) {
	registry := NewRegistry()

	pricesService := SetupPrices(registry, cfg)

	portfolioStore, err := portfolio.NewStore(cfg.Portfolio)
	if err != nil {
		return nil, err
	}
	registry.Register(portfolioStore)

	// Websocket push, fed by the prices service
	priceFeed := pricefeed.NewHub(cfg.PriceFeed, pricesService)
	registry.Register(priceFeed)

	server := api.New(cfg.Port, pricesService, portfolioStore, priceFeed)
	registry.Register(server)

	return registry, nil
}
