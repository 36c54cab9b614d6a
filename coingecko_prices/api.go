package coingecko_prices

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	cg "github.com/status-im/portfolio-proxy/coingecko_common"
	"github.com/status-im/portfolio-proxy/config"
	"github.com/status-im/portfolio-proxy/metrics"
)

// MaxSearchResults is the number of coins a search returns at most
const MaxSearchResults = 20

//go:generate mockgen -destination=mocks/api.go . APIClient

// APIClient defines interface for API operations
type APIClient interface {
	// FetchPrices fetches USD quotes for ids, in chunks when there are many
	FetchPrices(ctx context.Context, ids []string) (PriceSnapshot, error)
	// SearchCoins searches coins by name or symbol
	SearchCoins(ctx context.Context, query string) ([]CoinSearchResult, error)
	// Healthy reports whether at least one fetch succeeded
	Healthy() bool
}

// CoinGeckoClient implements APIClient for CoinGecko. It never touches the cache.
type CoinGeckoClient struct {
	config          *config.Config
	keyManager      cg.IAPIKeyManager
	httpClient      *cg.HTTPClientWithRetries
	now             func() time.Time
	successfulFetch atomic.Bool // Flag indicating if at least one fetch was successful
}

// NewCoinGeckoClient creates a new CoinGecko API client
func NewCoinGeckoClient(cfg *config.Config, metricsWriter *metrics.MetricsWriter) *CoinGeckoClient {
	pricesCfg := cfg.CoingeckoPrices

	retryOpts := cg.DefaultRetryOptions()
	retryOpts.LogPrefix = "CoinGeckoPrices"
	retryOpts.MaxRetries = pricesCfg.MaxRetries
	retryOpts.BaseBackoff = pricesCfg.BaseBackoff
	retryOpts.RequestTimeout = pricesCfg.RequestTimeout

	var statusHandler cg.IHttpStatusHandler
	if metricsWriter != nil {
		statusHandler = metricsWriter
	}
	limiterManager := cg.NewRateLimiterManager(cfg.APIKeys, pricesCfg.RateLimitDelay)

	return &CoinGeckoClient{
		config:     cfg,
		keyManager: cg.NewAPIKeyManager(cfg.APITokens),
		httpClient: cg.NewHTTPClientWithRetries(retryOpts, statusHandler, limiterManager),
		now:        time.Now,
	}
}

// Healthy checks if the API has had at least one successful fetch
func (c *CoinGeckoClient) Healthy() bool {
	return c.successfulFetch.Load()
}

// FetchPrices fetches USD quotes for ids. Coins unknown upstream are absent from the result.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context, ids []string) (PriceSnapshot, error) {
	chunkSize := c.config.CoingeckoPrices.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(ids)
	}

	records, err := cg.ChunkMapFetcher(ctx, ids, chunkSize, c.fetchChunk)
	if err != nil {
		return nil, err
	}

	c.successfulFetch.Store(true)
	return PriceSnapshot(records), nil
}

func (c *CoinGeckoClient) fetchChunk(ctx context.Context, ids []string) (map[string]PriceRecord, error) {
	body, err := c.execute(ctx, func(baseURL string) *cg.CoingeckoRequestBuilder {
		return newSimplePriceRequest(baseURL, ids)
	})
	if err != nil {
		return nil, err
	}

	records, err := parseSimplePrice(body, c.now())
	if err != nil {
		return nil, err
	}

	log.Printf("CoinGeckoPrices: Fetched %d of %d requested coins", len(records), len(ids))
	return records, nil
}

// SearchCoins returns at most MaxSearchResults coins matching query
func (c *CoinGeckoClient) SearchCoins(ctx context.Context, query string) ([]CoinSearchResult, error) {
	body, err := c.execute(ctx, func(baseURL string) *cg.CoingeckoRequestBuilder {
		return newSearchRequest(baseURL, query)
	})
	if err != nil {
		return nil, err
	}

	coins, err := parseSearch(body)
	if err != nil {
		return nil, err
	}

	c.successfulFetch.Store(true)
	return coins, nil
}

// execute sends one request with the preferred API key, through the relay when enabled,
// and returns the raw CoinGecko body
func (c *CoinGeckoClient) execute(ctx context.Context, build func(baseURL string) *cg.CoingeckoRequestBuilder) ([]byte, error) {
	apiKey := c.keyManager.GetAvailableKeys()[0]

	requestBuilder := build(cg.GetApiBaseUrl(c.config, apiKey.Type)).
		WithApiKey(apiKey.Key, apiKey.Type)
	if c.config.Relay.Enabled {
		requestBuilder.WithRelay(c.config.Relay.URL)
	}

	request, err := requestBuilder.Build(ctx)
	if err != nil {
		return nil, cg.NewUpstreamError(0, "failed to build request", err)
	}

	body, duration, err := c.httpClient.ExecuteRequest(ctx, request)
	if err != nil {
		if requestBuilder.IsRelayed() && cg.IsKind(err, cg.ErrorKindRateLimited) {
			// The relay itself refused us, CoinGecko was never asked
			return nil, cg.NewUpstreamError(http.StatusTooManyRequests, "relay rejected request", err)
		}
		c.onError(apiKey, err)
		return nil, err
	}

	if requestBuilder.IsRelayed() {
		if body, err = cg.UnwrapRelayEnvelope(body, c.config.Relay.ContentsPath); err != nil {
			return nil, err
		}
	}

	if err := checkErrorStatus(body); err != nil {
		c.onError(apiKey, err)
		return nil, err
	}

	log.Printf("CoinGeckoPrices: Request with key type %v succeeded in %.2fs", apiKey.Type, duration.Seconds())
	return body, nil
}

func (c *CoinGeckoClient) onError(apiKey cg.APIKey, err error) {
	log.Printf("CoinGeckoPrices: Request with key type %v failed: %v", apiKey.Type, err)
	if cg.IsKind(err, cg.ErrorKindRateLimited) {
		c.keyManager.MarkKeyAsFailed(apiKey.Key)
	}
}

// checkErrorStatus detects errors CoinGecko reports inside a 200 body,
// e.g. {"status": {"error_code": 429, "error_message": "..."}}
func checkErrorStatus(body []byte) error {
	var envelope struct {
		Status *struct {
			ErrorCode    int    `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Status == nil || envelope.Status.ErrorCode == 0 {
		return nil
	}

	code := envelope.Status.ErrorCode
	if code == http.StatusTooManyRequests {
		return cg.NewRateLimitError(code, envelope.Status.ErrorMessage)
	}
	return cg.NewUpstreamError(code, fmt.Sprintf("error in response body: %s", envelope.Status.ErrorMessage), nil)
}

func parseSimplePrice(body []byte, fetchedAt time.Time) (map[string]PriceRecord, error) {
	var quotes map[string]simplePriceQuote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return nil, cg.NewUpstreamError(0, "malformed price response", err)
	}

	records := make(map[string]PriceRecord, len(quotes))
	for id, quote := range quotes {
		if quote.USD == nil {
			continue
		}
		record := PriceRecord{USD: *quote.USD, FetchedAt: fetchedAt}
		if quote.USD24hChange != nil {
			record.USD24hChange = *quote.USD24hChange
		}
		if quote.USDMarketCap != nil {
			record.USDMarketCap = *quote.USDMarketCap
		}
		if quote.USD24hVol != nil {
			record.USD24hVol = *quote.USD24hVol
		}
		if quote.LastUpdatedAt != nil {
			record.LastUpdatedAt = *quote.LastUpdatedAt
		}
		records[id] = record
	}
	return records, nil
}

func parseSearch(body []byte) ([]CoinSearchResult, error) {
	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, cg.NewUpstreamError(0, "malformed search response", err)
	}

	coins := make([]CoinSearchResult, 0, MaxSearchResults)
	for _, coin := range response.Coins {
		if len(coins) == MaxSearchResults {
			break
		}
		result := CoinSearchResult{
			ID:     coin.ID,
			Name:   coin.Name,
			Symbol: coin.Symbol,
			Thumb:  coin.Thumb,
		}
		if coin.MarketCapRank != nil {
			result.MarketCapRank = *coin.MarketCapRank
		}
		coins = append(coins, result)
	}
	return coins, nil
}
