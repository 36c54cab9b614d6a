package coingecko_common

import (
	"log"
	"sync"
	"time"

	"github.com/status-im/portfolio-proxy/config"
)

// DefaultKeyBackoff is how long a rate limited key is skipped
const DefaultKeyBackoff = 5 * time.Minute

// KeyType defines the API key type
type KeyType int

const (
	// NoKey means no API key is available
	NoKey KeyType = iota
	// ProKey means using a Pro API key
	ProKey
	// DemoKey means using a demo API key
	DemoKey
)

func (k KeyType) String() string {
	switch k {
	case ProKey:
		return "pro"
	case DemoKey:
		return "demo"
	default:
		return "none"
	}
}

// APIKey represents an API key with its type
type APIKey struct {
	Key  string
	Type KeyType
}

// IAPIKeyManager defines the interface for API key management
type IAPIKeyManager interface {
	// GetAvailableKeys returns usable keys in preference order: pro keys, demo keys,
	// then the "no key" entry, which is always last. Keys in backoff are skipped,
	// except a sole pro key.
	GetAvailableKeys() []APIKey

	// MarkKeyAsFailed puts a key in backoff, typically after a rate limited answer
	MarkKeyAsFailed(key string)
}

// APIKeyManager implements IAPIKeyManager for CoinGecko
type APIKeyManager struct {
	apiTokens   *config.APITokens
	backoffTime time.Duration
	now         func() time.Time

	mu         sync.RWMutex
	lastFailed map[string]time.Time
}

// NewAPIKeyManager creates a new API key manager with the default backoff
func NewAPIKeyManager(apiTokens *config.APITokens) *APIKeyManager {
	return &APIKeyManager{
		apiTokens:   apiTokens,
		backoffTime: DefaultKeyBackoff,
		now:         time.Now,
		lastFailed:  make(map[string]time.Time),
	}
}

func (m *APIKeyManager) inBackoff(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failedAt, ok := m.lastFailed[key]
	return ok && m.now().Sub(failedAt) < m.backoffTime
}

// GetAvailableKeys implements IAPIKeyManager
func (m *APIKeyManager) GetAvailableKeys() []APIKey {
	var proKeys, demoKeys []string
	if m.apiTokens != nil {
		proKeys = m.apiTokens.Tokens
		demoKeys = m.apiTokens.DemoTokens
	}

	keys := make([]APIKey, 0, len(proKeys)+len(demoKeys)+1)
	for _, key := range proKeys {
		if len(proKeys) == 1 || !m.inBackoff(key) {
			keys = append(keys, APIKey{Key: key, Type: ProKey})
		}
	}
	for _, key := range demoKeys {
		if !m.inBackoff(key) {
			keys = append(keys, APIKey{Key: key, Type: DemoKey})
		}
	}

	return append(keys, APIKey{Key: "", Type: NoKey})
}

// MarkKeyAsFailed implements IAPIKeyManager
func (m *APIKeyManager) MarkKeyAsFailed(key string) {
	if key == "" {
		return
	}

	m.mu.Lock()
	m.lastFailed[key] = m.now()
	m.mu.Unlock()

	log.Printf("APIKeyManager: Key put in backoff for %v", m.backoffTime)
}
