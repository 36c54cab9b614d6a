package e2etest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/status-im/portfolio-proxy/config"
)

// createTestConfig writes a config and tokens file pointing at the mock
// CoinGecko server and returns the config path
func createTestConfig(port, mockURL string) (string, error) {
	tempDir, err := os.MkdirTemp("", "portfolio-proxy-test")
	if err != nil {
		return "", err
	}

	configContent := `
port: "%s"

coingecko_prices:
  ttl: 1s                   # short ttl so tests can observe expiry
  stale_retention: 1h
  search_ttl: 1m
  chunk_size: 100
  rate_limit_delay: 50ms    # short spacing for tests
  request_timeout: 2s
  max_retries: 1
  base_backoff: 10ms
  lock_timeout: 3s
  lock_grace: 1s
  leader_timeout: 5s

price_feed:
  update_interval: 300ms
  write_timeout: 2s
  pong_wait: 10s
  max_coins_per_client: 10

portfolio:
  driver: memory

tokens_file: "%s"

# URLs for API (mock)
override_coingecko_public_url: "%s"
override_coingecko_pro_url: "%s"
`

	tokensFilePath := filepath.Join(tempDir, "tokens.json")
	tokensContent := `
{
  "api_tokens": ["test-api-key"],
  "demo_api_tokens": ["test-demo-key"]
}
`

	if err := os.WriteFile(tokensFilePath, []byte(tokensContent), 0644); err != nil {
		os.RemoveAll(tempDir)
		return "", err
	}

	configContent = fmt.Sprintf(configContent, port, tokensFilePath, mockURL, mockURL)

	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		os.RemoveAll(tempDir)
		return "", err
	}

	return configPath, nil
}

// loadTestConfig creates and loads test configuration
func loadTestConfig(port, mockURL string) (*config.Config, string, error) {
	configPath, err := createTestConfig(port, mockURL)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		os.RemoveAll(filepath.Dir(configPath))
		return nil, "", err
	}

	return cfg, configPath, nil
}

// cleanupTestConfig removes the temporary directory with configuration
func cleanupTestConfig(configPath string) {
	os.RemoveAll(filepath.Dir(configPath))
}
