package coingecko_prices

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

const cacheKeyPrefix = "simple_price:"

// CacheKey identifies a set of coins regardless of order, case and duplicates
type CacheKey struct {
	ids []string
	key string
}

// NewCacheKey normalizes ids: trims, lower-cases, drops empty and duplicate ids and sorts
func NewCacheKey(ids []string) CacheKey {
	seen := make(map[string]struct{}, len(ids))
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	if len(normalized) == 0 {
		return CacheKey{}
	}

	sort.Strings(normalized)
	sum := md5.Sum([]byte(strings.Join(normalized, ",")))

	return CacheKey{
		ids: normalized,
		key: cacheKeyPrefix + hex.EncodeToString(sum[:]),
	}
}

// IDs returns the normalized coin ids
func (k CacheKey) IDs() []string {
	return append([]string(nil), k.ids...)
}

// IsEmpty reports whether no coin was requested
func (k CacheKey) IsEmpty() bool {
	return len(k.ids) == 0
}

func (k CacheKey) String() string {
	return k.key
}

// searchCacheKey returns the cache key of a coin search
func searchCacheKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}
