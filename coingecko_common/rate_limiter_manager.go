package coingecko_common

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/status-im/portfolio-proxy/config"
	"golang.org/x/time/rate"
)

// IRateLimiterManager provides a way to get a rate limiter for an outgoing request
//
//go:generate mockgen -destination=mocks/rate_limiter_manager.go . IRateLimiterManager
type IRateLimiterManager interface {
	GetLimiterForRequest(req *http.Request) *rate.Limiter
}

// RateLimiterManager manages per-key rate limiters.
// Without an explicit requests-per-minute setting every key is limited to one
// request per spacing interval, burst 1, which enforces a minimum gap between requests.
type RateLimiterManager struct {
	mu           sync.Mutex
	keyToLimiter map[string]*rate.Limiter
	config       config.APIKeyConfig
	spacing      time.Duration
}

// NewRateLimiterManager creates a manager with the given per-type config and default spacing
func NewRateLimiterManager(cfg config.APIKeyConfig, spacing time.Duration) *RateLimiterManager {
	return &RateLimiterManager{
		keyToLimiter: make(map[string]*rate.Limiter),
		config:       cfg,
		spacing:      spacing,
	}
}

// GetLimiterForRequest inspects headers, query and, for relayed requests, the
// wrapped target URL to find the API key the request is sent with
func (m *RateLimiterManager) GetLimiterForRequest(req *http.Request) *rate.Limiter {
	if m == nil || req == nil || req.URL == nil {
		return nil
	}

	if v := req.Header.Get(ProKeyHeader); v != "" {
		return m.getLimiterForKey(v, ProKey)
	}
	if v := req.Header.Get(DemoKeyHeader); v != "" {
		return m.getLimiterForKey(v, DemoKey)
	}

	key, keyType := keyFromQuery(req.URL.Query())
	if keyType == NoKey {
		// Relay requests carry the CoinGecko URL in their url parameter
		if target := req.URL.Query().Get(RelayTargetParam); target != "" {
			if targetURL, err := url.Parse(target); err == nil {
				key, keyType = keyFromQuery(targetURL.Query())
			}
		}
	}

	return m.getLimiterForKey(key, keyType)
}

func keyFromQuery(query url.Values) (string, KeyType) {
	if v := query.Get(ProKeyParam); v != "" {
		return v, ProKey
	}
	if v := query.Get(DemoKeyParam); v != "" {
		return v, DemoKey
	}
	return "", NoKey
}

// getLimiterForKey returns a limiter for a given api key and type, creating it if missing
func (m *RateLimiterManager) getLimiterForKey(key string, keyType KeyType) *rate.Limiter {
	mapKey := keyType.String() + "|" + key

	m.mu.Lock()
	defer m.mu.Unlock()

	if lim, ok := m.keyToLimiter[mapKey]; ok {
		return lim
	}

	limit, burst := m.limitForType(keyType)
	limiter := rate.NewLimiter(limit, burst)
	m.keyToLimiter[mapKey] = limiter
	return limiter
}

func (m *RateLimiterManager) limitForType(keyType KeyType) (rate.Limit, int) {
	var rl config.RateLimit
	switch keyType {
	case ProKey:
		rl = m.config.Pro
	case DemoKey:
		rl = m.config.Demo
	default:
		rl = m.config.NoKey
	}

	burst := rl.Burst
	if burst <= 0 {
		burst = 1
	}

	if rl.RateLimitPerMinute > 0 {
		return rate.Limit(float64(rl.RateLimitPerMinute) / 60.0), burst
	}
	if m.spacing <= 0 {
		return rate.Inf, burst
	}
	return rate.Every(m.spacing), burst
}
