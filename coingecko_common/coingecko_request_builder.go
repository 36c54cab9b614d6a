package coingecko_common

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// Base URL for public API
	COINGECKO_PUBLIC_URL = "https://api.coingecko.com"
	// Base URL for Pro API
	COINGECKO_PRO_URL = "https://pro-api.coingecko.com"

	// API key headers, used for direct requests
	ProKeyHeader  = "x-cg-pro-api-key"
	DemoKeyHeader = "x-cg-demo-api-key"

	// API key query parameters, used when the request goes through a relay
	ProKeyParam  = "x_cg_pro_api_key"
	DemoKeyParam = "x_cg_demo_api_key"

	// RelayTargetParam is the relay query parameter holding the upstream URL
	RelayTargetParam = "url"
)

// buildURL safely combines a base URL with a path
func buildURL(baseURL, path string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	trimmedPath := strings.TrimLeft(path, "/")

	return baseURL + "/" + trimmedPath
}

// CoingeckoRequestBuilder implements the Builder pattern for CoinGecko API requests
type CoingeckoRequestBuilder struct {
	baseURL    string
	httpMethod string
	apiPath    string
	params     map[string]string
	apiKey     string
	keyType    KeyType
	userAgent  string
	headers    map[string]string
	relayURL   string
}

// NewCoingeckoRequestBuilder creates a new base request builder for CoinGecko endpoints
func NewCoingeckoRequestBuilder(baseURL, apiPath string) *CoingeckoRequestBuilder {
	rb := &CoingeckoRequestBuilder{
		baseURL:    baseURL,
		apiPath:    apiPath,
		httpMethod: "GET",
		params:     make(map[string]string),
		headers:    make(map[string]string),
		userAgent:  "Mozilla/5.0 Portfolio-Proxy",
	}

	rb.headers["Accept"] = "application/json"

	return rb
}

// With adds a custom parameter to the URL query
func (rb *CoingeckoRequestBuilder) With(key, value string) *CoingeckoRequestBuilder {
	rb.params[key] = value
	return rb
}

// WithApiKey sets the API key and its type
func (rb *CoingeckoRequestBuilder) WithApiKey(apiKey string, keyType KeyType) *CoingeckoRequestBuilder {
	if apiKey != "" {
		rb.apiKey = apiKey
		rb.keyType = keyType
	}
	return rb
}

// WithRelay sends the request through a CORS relay at relayURL
func (rb *CoingeckoRequestBuilder) WithRelay(relayURL string) *CoingeckoRequestBuilder {
	rb.relayURL = relayURL
	return rb
}

// WithHeader adds a custom HTTP header
func (rb *CoingeckoRequestBuilder) WithHeader(name, value string) *CoingeckoRequestBuilder {
	rb.headers[name] = value
	return rb
}

// WithUserAgent sets the User-Agent header
func (rb *CoingeckoRequestBuilder) WithUserAgent(userAgent string) *CoingeckoRequestBuilder {
	rb.userAgent = userAgent
	return rb
}

// GetApiKey returns the API key and its type
func (rb *CoingeckoRequestBuilder) GetApiKey() (string, KeyType) {
	return rb.apiKey, rb.keyType
}

// IsRelayed reports whether the request goes through a relay
func (rb *CoingeckoRequestBuilder) IsRelayed() bool {
	return rb.relayURL != ""
}

// BuildTargetURL builds the CoinGecko URL, with the API key in the query when relayed
func (rb *CoingeckoRequestBuilder) BuildTargetURL() string {
	fullPath := buildURL(rb.baseURL, rb.apiPath)

	query := url.Values{}
	for key, value := range rb.params {
		query.Add(key, value)
	}

	// Headers do not survive the relay
	if rb.apiKey != "" && rb.IsRelayed() {
		switch rb.keyType {
		case ProKey:
			query.Add(ProKeyParam, rb.apiKey)
		case DemoKey:
			query.Add(DemoKeyParam, rb.apiKey)
		}
	}

	finalURL := fullPath
	if queryString := query.Encode(); queryString != "" {
		finalURL = fmt.Sprintf("%s?%s", finalURL, queryString)
	}

	return finalURL
}

// BuildURL builds the URL the request is sent to
func (rb *CoingeckoRequestBuilder) BuildURL() string {
	target := rb.BuildTargetURL()
	if !rb.IsRelayed() {
		return target
	}

	separator := "?"
	if strings.Contains(rb.relayURL, "?") {
		separator = "&"
	}
	return rb.relayURL + separator + url.Values{RelayTargetParam: {target}}.Encode()
}

// Build creates an http.Request object
func (rb *CoingeckoRequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, rb.httpMethod, rb.BuildURL(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", rb.userAgent)

	for key, value := range rb.headers {
		req.Header.Set(key, value)
	}

	if rb.apiKey != "" && !rb.IsRelayed() {
		switch rb.keyType {
		case ProKey:
			req.Header.Set(ProKeyHeader, rb.apiKey)
		case DemoKey:
			req.Header.Set(DemoKeyHeader, rb.apiKey)
		}
	}

	return req, nil
}
