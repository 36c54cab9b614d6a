package e2etest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTestConfig(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, configPath, err := loadTestConfig("9999", "http://127.0.0.1:1")
	require.NoError(t, err)
	defer cleanupTestConfig(configPath)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, time.Second, cfg.CoingeckoPrices.TTL)
	assert.Equal(t, time.Hour, cfg.CoingeckoPrices.StaleRetention)
	assert.Equal(t, 3*time.Second, cfg.CoingeckoPrices.LockTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.PriceFeed.UpdateInterval)
	assert.Equal(t, 10, cfg.PriceFeed.MaxCoinsPerClient)
	assert.Equal(t, "memory", cfg.Portfolio.Driver)
	assert.Equal(t, "http://127.0.0.1:1", cfg.OverrideCoingeckoProURL)

	require.NotNil(t, cfg.APITokens)
	assert.Equal(t, []string{"test-api-key"}, cfg.APITokens.Tokens)
	assert.Equal(t, []string{"test-demo-key"}, cfg.APITokens.DemoTokens)
}
