package coingecko_prices

import (
	"strings"

	cg "github.com/status-im/portfolio-proxy/coingecko_common"
)

const (
	simplePricePath = "/api/v3/simple/price"
	searchPath      = "/api/v3/search"
)

// Every price request asks for the same USD quote fields that PriceRecord holds
var simplePriceFlags = []string{
	"include_24hr_change",
	"include_market_cap",
	"include_24hr_vol",
	"include_last_updated_at",
}

func newSimplePriceRequest(baseURL string, ids []string) *cg.CoingeckoRequestBuilder {
	rb := cg.NewCoingeckoRequestBuilder(baseURL, simplePricePath).
		With("ids", strings.Join(ids, ",")).
		With("vs_currencies", "usd")
	for _, flag := range simplePriceFlags {
		rb.With(flag, "true")
	}
	return rb
}

func newSearchRequest(baseURL, query string) *cg.CoingeckoRequestBuilder {
	return cg.NewCoingeckoRequestBuilder(baseURL, searchPath).With("query", query)
}
