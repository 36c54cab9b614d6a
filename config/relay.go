package config

// RelayConfig routes CoinGecko requests through a CORS relay that wraps
// the upstream body into a JSON envelope
type RelayConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`           // Relay endpoint, the target goes into its url parameter
	ContentsPath string `yaml:"contents_path"` // JSONPath of the raw upstream body inside the envelope
}

// DefaultRelayConfig returns the public allorigins relay, disabled
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Enabled:      false,
		URL:          "https://api.allorigins.win/get",
		ContentsPath: "$.contents",
	}
}
