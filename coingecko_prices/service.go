package coingecko_prices

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/status-im/portfolio-proxy/cache"
	"github.com/status-im/portfolio-proxy/config"
	"github.com/status-im/portfolio-proxy/events"
	"github.com/status-im/portfolio-proxy/interfaces"
	"github.com/status-im/portfolio-proxy/metrics"
	"github.com/status-im/portfolio-proxy/singleflight"
)

// Service answers price lookups from cache, fetching each missing key at most once at a
// time and falling back to the last known prices when the fetch fails
type Service struct {
	config              *config.Config
	apiClient           APIClient
	priceCache          *PriceCache
	prices              *singleflight.Coordinator[PriceSnapshot]
	searches            *singleflight.Coordinator[[]CoinSearchResult]
	metricsWriter       *metrics.MetricsWriter
	searchMetrics       *metrics.MetricsWriter
	subscriptionManager *events.SubscriptionManager
}

// NewService creates a price service talking to CoinGecko.
// store keeps the snapshots, locker coordinates fetches with other instances sharing it.
func NewService(store cache.Store, locker cache.Locker, cfg *config.Config) *Service {
	metricsWriter := metrics.NewMetricsWriter(metrics.ServicePrices)
	return NewServiceWithClient(store, locker, cfg, NewCoinGeckoClient(cfg, metricsWriter))
}

// NewServiceWithClient creates a price service over an arbitrary APIClient
func NewServiceWithClient(store cache.Store, locker cache.Locker, cfg *config.Config, apiClient APIClient) *Service {
	metricsWriter := metrics.NewMetricsWriter(metrics.ServicePrices)
	searchMetrics := metrics.NewMetricsWriter(metrics.ServiceSearch)

	pricesCfg := cfg.CoingeckoPrices
	opts := singleflight.Options{
		LockTimeout:   pricesCfg.LockTimeout,
		LockGrace:     pricesCfg.LockGrace,
		LeaderTimeout: pricesCfg.LeaderTimeout,
	}

	return &Service{
		config:              cfg,
		apiClient:           apiClient,
		priceCache:          NewPriceCache(store, pricesCfg.StaleRetention, metricsWriter),
		prices:              singleflight.New[PriceSnapshot](locker, opts, metricsWriter),
		searches:            singleflight.New[[]CoinSearchResult](locker, opts, searchMetrics),
		metricsWriter:       metricsWriter,
		searchMetrics:       searchMetrics,
		subscriptionManager: events.NewSubscriptionManager(),
	}
}

// Start implements core.Interface
func (s *Service) Start(ctx context.Context) error {
	if s.priceCache == nil || s.priceCache.store == nil {
		return fmt.Errorf("cache dependency not provided")
	}
	if s.apiClient == nil {
		return fmt.Errorf("api client not provided")
	}
	return nil
}

// Stop implements core.Interface
func (s *Service) Stop() {}

// GetPrices implements interfaces.PricesService.
//
// A fresh cache entry is returned without any lock or upstream call. Otherwise the
// caller joins the single fetch for this set of coins. If that fetch fails, times out
// or the caller gives up waiting, the last stored snapshot is served as stale, and
// without one the answer is empty with CacheStatusUnavailable.
func (s *Service) GetPrices(ctx context.Context, coinIDs []string) (PriceSnapshot, interfaces.CacheStatus) {
	key := NewCacheKey(coinIDs)
	if key.IsEmpty() {
		return PriceSnapshot{}, interfaces.CacheStatusFull
	}
	cacheKey := key.String()

	if snapshot, ok := s.priceCache.Get(ctx, cacheKey); ok {
		s.metricsWriter.RecordCacheLookup("hit")
		return snapshot.Clone(), interfaces.CacheStatusFull
	}
	s.metricsWriter.RecordCacheLookup("miss")

	snapshot, err := s.prices.Execute(ctx, cacheKey,
		func(ctx context.Context) (PriceSnapshot, error) {
			return s.fetchAndStore(ctx, key)
		},
		func(ctx context.Context) (PriceSnapshot, bool) {
			return s.priceCache.Get(ctx, cacheKey)
		},
	)
	if err == nil {
		return snapshot.Clone(), interfaces.CacheStatusFull
	}

	log.Printf("CoinGeckoPrices: Fetch of %d coins failed: %v", len(key.IDs()), err)

	if stale, ok := s.priceCache.GetStale(ctx, cacheKey); ok {
		s.metricsWriter.RecordCacheLookup("stale")
		return stale.Clone(), interfaces.CacheStatusStale
	}

	s.metricsWriter.RecordCacheLookup("unavailable")
	return PriceSnapshot{}, interfaces.CacheStatusUnavailable
}

// fetchAndStore runs as the single leader for key. Failures are never cached.
func (s *Service) fetchAndStore(ctx context.Context, key CacheKey) (PriceSnapshot, error) {
	start := time.Now()
	snapshot, err := s.apiClient.FetchPrices(ctx, key.IDs())
	s.metricsWriter.RecordDataFetch(time.Since(start))
	if err != nil {
		return nil, err
	}

	s.priceCache.Set(ctx, key.String(), snapshot, s.config.CoingeckoPrices.TTL)
	s.subscriptionManager.Emit(ctx, events.PricesUpdated{CoinIDs: key.IDs()})
	return snapshot, nil
}

// InvalidatePrices drops the cached snapshot for coinIDs
func (s *Service) InvalidatePrices(ctx context.Context, coinIDs []string) {
	key := NewCacheKey(coinIDs)
	if key.IsEmpty() {
		return
	}
	s.priceCache.Invalidate(ctx, key.String())
}

// SearchCoins implements interfaces.PricesService
func (s *Service) SearchCoins(ctx context.Context, query string) []CoinSearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []CoinSearchResult{}
	}
	cacheKey := searchCacheKey(query)

	if coins, ok := s.priceCache.getSearch(ctx, cacheKey, false); ok {
		s.searchMetrics.RecordCacheLookup("hit")
		return append([]CoinSearchResult{}, coins...)
	}
	s.searchMetrics.RecordCacheLookup("miss")

	coins, err := s.searches.Execute(ctx, cacheKey,
		func(ctx context.Context) ([]CoinSearchResult, error) {
			coins, err := s.apiClient.SearchCoins(ctx, query)
			if err != nil {
				return nil, err
			}
			s.priceCache.setSearch(ctx, cacheKey, coins, s.config.CoingeckoPrices.SearchTTL)
			return coins, nil
		},
		func(ctx context.Context) ([]CoinSearchResult, bool) {
			return s.priceCache.getSearch(ctx, cacheKey, false)
		},
	)
	if err == nil {
		return append([]CoinSearchResult{}, coins...)
	}

	log.Printf("CoinGeckoPrices: Search for %q failed: %v", query, err)
	if stale, ok := s.priceCache.getSearch(ctx, cacheKey, true); ok {
		s.searchMetrics.RecordCacheLookup("stale")
		return append([]CoinSearchResult{}, stale...)
	}
	s.searchMetrics.RecordCacheLookup("unavailable")
	return []CoinSearchResult{}
}

// Healthy checks if the service is operational
func (s *Service) Healthy() bool {
	return s.apiClient.Healthy()
}

// SubscribePricesUpdate implements interfaces.PricesService
func (s *Service) SubscribePricesUpdate() events.ISubscription {
	return s.subscriptionManager.Subscribe()
}
