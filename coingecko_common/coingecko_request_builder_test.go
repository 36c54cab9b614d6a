package coingecko_common

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoingeckoRequestBuilder_Direct(t *testing.T) {
	rb := NewCoingeckoRequestBuilder(COINGECKO_PRO_URL+"/", "/api/v3/simple/price").
		With("ids", "bitcoin,ethereum").
		With("vs_currencies", "usd").
		WithApiKey("pro-key", ProKey)

	assert.False(t, rb.IsRelayed())
	assert.Equal(t,
		"https://pro-api.coingecko.com/api/v3/simple/price?ids=bitcoin%2Cethereum&vs_currencies=usd",
		rb.BuildURL())

	req, err := rb.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pro-key", req.Header.Get(ProKeyHeader))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "Mozilla/5.0 Portfolio-Proxy", req.Header.Get("User-Agent"))
}

func TestCoingeckoRequestBuilder_Relayed(t *testing.T) {
	rb := NewCoingeckoRequestBuilder(COINGECKO_PUBLIC_URL, "api/v3/simple/price").
		With("ids", "bitcoin").
		WithApiKey("demo-key", DemoKey).
		WithRelay("https://relay.example.com/get")

	require.True(t, rb.IsRelayed())

	req, err := rb.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get(DemoKeyHeader), "headers do not survive the relay")
	assert.Equal(t, "relay.example.com", req.URL.Host)

	target, err := url.Parse(req.URL.Query().Get(RelayTargetParam))
	require.NoError(t, err)
	assert.Equal(t, "api.coingecko.com", target.Host)
	assert.Equal(t, "bitcoin", target.Query().Get("ids"))
	assert.Equal(t, "demo-key", target.Query().Get(DemoKeyParam))
}

func TestCoingeckoRequestBuilder_RelayWithQuery(t *testing.T) {
	rb := NewCoingeckoRequestBuilder(COINGECKO_PUBLIC_URL, "api/v3/search").
		WithRelay("https://relay.example.com/get?charset=utf-8")

	u, err := url.Parse(rb.BuildURL())
	require.NoError(t, err)
	assert.Equal(t, "utf-8", u.Query().Get("charset"))
	assert.Equal(t, "https://api.coingecko.com/api/v3/search", u.Query().Get(RelayTargetParam))
}

func TestCoingeckoRequestBuilder_NoKey(t *testing.T) {
	rb := NewCoingeckoRequestBuilder(COINGECKO_PUBLIC_URL, "api/v3/ping").WithApiKey("", ProKey)

	key, keyType := rb.GetApiKey()
	assert.Empty(t, key)
	assert.Equal(t, NoKey, keyType)
}
