package config

import (
	"encoding/json"
	"os"
)

// APITokens holds CoinGecko API keys loaded from the tokens file
type APITokens struct {
	Tokens     []string `json:"api_tokens"`
	DemoTokens []string `json:"demo_api_tokens,omitempty"`
}

// LoadAPITokens reads API tokens from a json file, a missing file means no tokens
func LoadAPITokens(filename string) (*APITokens, error) {
	if filename == "" {
		return &APITokens{Tokens: []string{}}, nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return &APITokens{Tokens: []string{}}, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var tokens APITokens
	err = json.Unmarshal(data, &tokens)
	return &tokens, err
}
