package cache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// GoCache simple in-memory store implementation using go-cache
type GoCache struct {
	cache *cache.Cache
}

// NewGoCache creates a new GoCache instance
// defaultExpiration: default expiration time for items
// cleanupInterval: interval for cleaning up expired items
func NewGoCache(defaultExpiration, cleanupInterval time.Duration) *GoCache {
	return &GoCache{
		cache: cache.New(defaultExpiration, cleanupInterval),
	}
}

// expiration maps Store ttl semantics onto go-cache ones
func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return cache.NoExpiration
	}
	return ttl
}

// Get retrieves the value for key
func (gc *GoCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, found := gc.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores value under key
func (gc *GoCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	gc.cache.Set(key, value, expiration(ttl))
	return nil
}

// Add stores value only if key is missing or expired
func (gc *GoCache) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := gc.cache.Add(key, value, expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes key
func (gc *GoCache) Delete(_ context.Context, key string) error {
	gc.cache.Delete(key)
	return nil
}

// Clear removes all items from cache
func (gc *GoCache) Clear() {
	gc.cache.Flush()
}

// ItemCount returns the number of items in cache
func (gc *GoCache) ItemCount() int {
	return gc.cache.ItemCount()
}

// DeleteExpired manually triggers deletion of expired items
func (gc *GoCache) DeleteExpired() {
	gc.cache.DeleteExpired()
}
