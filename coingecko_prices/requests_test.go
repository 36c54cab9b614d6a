package coingecko_prices

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cg "github.com/status-im/portfolio-proxy/coingecko_common"
)

func TestNewSimplePriceRequest(t *testing.T) {
	parsedURL, err := url.Parse(newSimplePriceRequest(cg.COINGECKO_PUBLIC_URL, []string{"bitcoin", "ethereum"}).BuildURL())
	require.NoError(t, err)

	assert.Equal(t, "api.coingecko.com", parsedURL.Host)
	assert.Equal(t, simplePricePath, parsedURL.Path)

	query := parsedURL.Query()
	assert.Equal(t, "bitcoin,ethereum", query.Get("ids"))
	assert.Equal(t, "usd", query.Get("vs_currencies"))
	for _, flag := range simplePriceFlags {
		assert.Equal(t, "true", query.Get(flag), flag)
	}
}

func TestNewSimplePriceRequest_Keys(t *testing.T) {
	tests := []struct {
		name        string
		keyType     cg.KeyType
		relay       string
		headerName  string
		headerValue string
		targetParam string
	}{
		{name: "pro key in header", keyType: cg.ProKey, headerName: cg.ProKeyHeader, headerValue: "key"},
		{name: "demo key in header", keyType: cg.DemoKey, headerName: cg.DemoKeyHeader, headerValue: "key"},
		{name: "demo key in relayed target", keyType: cg.DemoKey, relay: "https://relay.example.com/get", targetParam: cg.DemoKeyParam},
		{name: "pro key in relayed target", keyType: cg.ProKey, relay: "https://relay.example.com/get", targetParam: cg.ProKeyParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newSimplePriceRequest(cg.COINGECKO_PUBLIC_URL, []string{"bitcoin"}).WithApiKey("key", tt.keyType)
			if tt.relay != "" {
				rb.WithRelay(tt.relay)
			}

			req, err := rb.Build(context.Background())
			require.NoError(t, err)

			if tt.headerName != "" {
				assert.Equal(t, tt.headerValue, req.Header.Get(tt.headerName))
			}
			if tt.targetParam != "" {
				assert.Equal(t, "relay.example.com", req.URL.Host)
				target, err := url.Parse(req.URL.Query().Get(cg.RelayTargetParam))
				require.NoError(t, err)
				assert.Equal(t, simplePricePath, target.Path)
				assert.Equal(t, "bitcoin", target.Query().Get("ids"))
				assert.Equal(t, "key", target.Query().Get(tt.targetParam))
			}
		})
	}
}

func TestNewSearchRequest(t *testing.T) {
	parsedURL, err := url.Parse(newSearchRequest(cg.COINGECKO_PUBLIC_URL, "bit coin").BuildURL())
	require.NoError(t, err)

	assert.Equal(t, searchPath, parsedURL.Path)
	assert.Equal(t, "bit coin", parsedURL.Query().Get("query"))
}
