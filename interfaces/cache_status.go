package interfaces

// CacheStatus tells how a price answer was produced
type CacheStatus string

const (
	// CacheStatusFull fresh data, from cache or a fetch that just completed
	CacheStatusFull CacheStatus = "full"
	// CacheStatusStale last known data served because a refresh failed
	CacheStatusStale CacheStatus = "stale"
	// CacheStatusUnavailable nothing to serve; prices are temporarily unavailable
	CacheStatusUnavailable CacheStatus = "unavailable"
)

func (cs CacheStatus) String() string {
	return string(cs)
}
