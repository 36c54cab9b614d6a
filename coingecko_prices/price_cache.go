package coingecko_prices

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/status-im/portfolio-proxy/cache"
	"github.com/status-im/portfolio-proxy/metrics"
)

// PriceCache keeps price snapshots in a cache.Store.
// Entries are fresh until their ExpiresAt; the store keeps them for staleRetention
// so they can still be served as a fallback. Store failures are logged and
// treated as misses, never returned.
type PriceCache struct {
	store          cache.Store
	staleRetention time.Duration
	metricsWriter  *metrics.MetricsWriter
	now            func() time.Time
}

// NewPriceCache creates a price cache over store. staleRetention 0 keeps entries forever.
func NewPriceCache(store cache.Store, staleRetention time.Duration, metricsWriter *metrics.MetricsWriter) *PriceCache {
	return &PriceCache{
		store:          store,
		staleRetention: staleRetention,
		metricsWriter:  metricsWriter,
		now:            time.Now,
	}
}

// Get returns the snapshot for key while it is fresh
func (c *PriceCache) Get(ctx context.Context, key string) (PriceSnapshot, bool) {
	entry, ok := c.load(ctx, key)
	if !ok || !entry.IsFresh(c.now()) {
		return nil, false
	}
	return entry.Snapshot, true
}

// GetStale returns the last stored snapshot for key, expired or not
func (c *PriceCache) GetStale(ctx context.Context, key string) (PriceSnapshot, bool) {
	entry, ok := c.load(ctx, key)
	if !ok {
		return nil, false
	}
	return entry.Snapshot, true
}

// Set stores snapshot under key, fresh for ttl
func (c *PriceCache) Set(ctx context.Context, key string, snapshot PriceSnapshot, ttl time.Duration) {
	entry := CacheEntry{
		Key:       key,
		Snapshot:  snapshot,
		ExpiresAt: c.now().Add(ttl),
	}
	c.save(ctx, key, entry, ttl)
}

// Invalidate removes key from the store
func (c *PriceCache) Invalidate(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.storeError("delete", key, err)
	}
}

func (c *PriceCache) getSearch(ctx context.Context, key string, allowStale bool) ([]CoinSearchResult, bool) {
	var entry searchEntry
	if !c.read(ctx, key, &entry) {
		return nil, false
	}
	if !allowStale && !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Coins, true
}

func (c *PriceCache) setSearch(ctx context.Context, key string, coins []CoinSearchResult, ttl time.Duration) {
	c.save(ctx, key, searchEntry{Coins: coins, ExpiresAt: c.now().Add(ttl)}, ttl)
}

func (c *PriceCache) load(ctx context.Context, key string) (CacheEntry, bool) {
	var entry CacheEntry
	if !c.read(ctx, key, &entry) {
		return CacheEntry{}, false
	}
	return entry, true
}

func (c *PriceCache) read(ctx context.Context, key string, out interface{}) bool {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.storeError("get", key, err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.storeError("decode", key, err)
		return false
	}
	return true
}

func (c *PriceCache) save(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.storeError("encode", key, err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.retention(ttl)); err != nil {
		c.storeError("set", key, err)
	}
}

// retention is how long the store keeps an entry that is fresh for ttl
func (c *PriceCache) retention(ttl time.Duration) time.Duration {
	if c.staleRetention <= 0 {
		return 0
	}
	if c.staleRetention < ttl {
		return ttl
	}
	return c.staleRetention
}

func (c *PriceCache) storeError(operation, key string, err error) {
	log.Printf("PriceCache: %s %s failed: %v", operation, key, err)
	if c.metricsWriter != nil {
		c.metricsWriter.RecordCacheStoreError(operation)
	}
}
