package coingecko_common

import (
	"strings"

	"github.com/status-im/portfolio-proxy/config"
)

// GetApiBaseUrl picks the CoinGecko host for a key type. Pro keys only work
// against the pro host; demo and anonymous requests go to the public one.
func GetApiBaseUrl(cfg *config.Config, keyType KeyType) string {
	base, override := COINGECKO_PUBLIC_URL, cfg.OverrideCoingeckoPublicURL
	if keyType == ProKey {
		base, override = COINGECKO_PRO_URL, cfg.OverrideCoingeckoProURL
	}
	if override != "" {
		base = override
	}
	return strings.TrimRight(base, "/")
}
