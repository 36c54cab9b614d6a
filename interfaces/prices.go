package interfaces

import (
	"context"
	"time"

	"github.com/status-im/portfolio-proxy/events"
)

//go:generate mockgen -destination=mocks/prices.go . PricesService

// PriceRecord is the USD quote of a single coin
type PriceRecord struct {
	USD           float64   `json:"usd"`
	USD24hChange  float64   `json:"usd_24h_change"`
	USDMarketCap  float64   `json:"usd_market_cap"`
	USD24hVol     float64   `json:"usd_24h_vol"`
	LastUpdatedAt int64     `json:"last_updated_at"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// PriceSnapshot maps coin id to its quote. A snapshot is never mutated once built;
// callers that need to change it work on a Clone.
type PriceSnapshot map[string]PriceRecord

// Clone returns a copy that shares nothing with s
func (s PriceSnapshot) Clone() PriceSnapshot {
	clone := make(PriceSnapshot, len(s))
	for id, record := range s {
		clone[id] = record
	}
	return clone
}

// CoinSearchResult is a single coin matched by a search query
type CoinSearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
}

// PricesService is the price lookup used by HTTP handlers, analytics and the price feed
type PricesService interface {
	// GetPrices returns USD quotes for coinIDs. It never fails: when upstream is
	// unavailable it answers with the last known quotes (CacheStatusStale) or with
	// an empty snapshot (CacheStatusUnavailable).
	GetPrices(ctx context.Context, coinIDs []string) (PriceSnapshot, CacheStatus)

	// SearchCoins returns coins matching query, empty on failure
	SearchCoins(ctx context.Context, query string) []CoinSearchResult

	// SubscribePricesUpdate subscribes to successful price fetches
	SubscribePricesUpdate() events.ISubscription
}
