package coingecko_prices

import (
	"time"

	"github.com/status-im/portfolio-proxy/interfaces"
)

type (
	PriceRecord      = interfaces.PriceRecord
	PriceSnapshot    = interfaces.PriceSnapshot
	CoinSearchResult = interfaces.CoinSearchResult
)

// CacheEntry is what PriceCache keeps in the store for a key
type CacheEntry struct {
	Key       string        `json:"key"`
	Snapshot  PriceSnapshot `json:"snapshot"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// IsFresh reports whether the entry can be served as fresh at now
func (e CacheEntry) IsFresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// searchEntry is the cached answer of a coin search
type searchEntry struct {
	Coins     []CoinSearchResult `json:"coins"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// simplePriceQuote is one coin in the /simple/price answer
type simplePriceQuote struct {
	USD           *float64 `json:"usd"`
	USD24hChange  *float64 `json:"usd_24h_change"`
	USDMarketCap  *float64 `json:"usd_market_cap"`
	USD24hVol     *float64 `json:"usd_24h_vol"`
	LastUpdatedAt *int64   `json:"last_updated_at"`
}

// searchResponse is the part of the /search answer we use
type searchResponse struct {
	Coins []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Symbol        string `json:"symbol"`
		MarketCapRank *int   `json:"market_cap_rank"`
		Thumb         string `json:"thumb"`
	} `json:"coins"`
}
