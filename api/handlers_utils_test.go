package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/portfolio-proxy/interfaces"
)

func TestQueryIDs(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected []string
	}{
		{name: "missing", url: "/prices", expected: []string{}},
		{name: "empty", url: "/prices?ids=", expected: []string{}},
		{name: "single", url: "/prices?ids=bitcoin", expected: []string{"bitcoin"}},
		{name: "lowercased", url: "/prices?ids=BitCoin,ETHEREUM", expected: []string{"bitcoin", "ethereum"}},
		{name: "spaces trimmed", url: "/prices?ids=%20bitcoin%20,%20solana", expected: []string{"bitcoin", "solana"}},
		{name: "blanks dropped", url: "/prices?ids=bitcoin,,%20,ethereum,", expected: []string{"bitcoin", "ethereum"}},
		{name: "only commas", url: "/prices?ids=,,,", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			assert.Equal(t, tt.expected, queryIDs(r, "ids"))
		})
	}
}

func TestQueryValue(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "first key", url: "/search?query=bit", expected: "bit"},
		{name: "fallback key", url: "/search?q=eth", expected: "eth"},
		{name: "first key wins", url: "/search?query=bit&q=eth", expected: "bit"},
		{name: "blank first key falls back", url: "/search?query=%20&q=eth", expected: "eth"},
		{name: "case kept", url: "/search?query=Wrapped%20Bitcoin", expected: "Wrapped Bitcoin"},
		{name: "missing", url: "/search", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			assert.Equal(t, tt.expected, queryValue(r, "query", "q"))
		})
	}
}

func TestSendJSONResponse(t *testing.T) {
	tests := []struct {
		name         string
		data         interface{}
		expectedJSON string
	}{
		{name: "object", data: map[string]string{"message": "hello"}, expectedJSON: `{"message":"hello"}`},
		{name: "array", data: []string{"a", "b"}, expectedJSON: `["a","b"]`},
		{name: "empty object", data: map[string]interface{}{}, expectedJSON: `{}`},
		{
			name:         "prices",
			data:         PricesResponse{Prices: interfaces.PriceSnapshot{}, Status: interfaces.CacheStatusUnavailable},
			expectedJSON: `{"prices":{},"status":"unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{}
			recorder := httptest.NewRecorder()

			server.sendJSONResponse(recorder, tt.data)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedJSON, recorder.Body.String(), "no trailing newline")
			assert.Equal(t, len(tt.expectedJSON), recorder.Body.Len())

			etag := recorder.Header().Get("ETag")
			assert.Regexp(t, `^"[0-9a-f]{32}"$`, etag)
		})
	}
}

func TestSendJSONResponseWithStatus(t *testing.T) {
	server := &Server{}
	recorder := httptest.NewRecorder()

	server.sendJSONResponseWithStatus(recorder, nil, http.StatusCreated, map[string]string{"id": "p1"})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, `{"id":"p1"}`, recorder.Body.String())
	assert.Equal(t, "11", recorder.Header().Get("Content-Length"))
}

func TestSendJSONError(t *testing.T) {
	recorder := httptest.NewRecorder()

	sendJSONError(recorder, http.StatusNotFound, `Portfolio "x" not found`)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.Equal(t, `{"error":"Portfolio \"x\" not found"}`, recorder.Body.String())
}

func TestSendConditionalJSONResponse(t *testing.T) {
	server := &Server{}
	data := map[string]float64{"bitcoin": 45000}

	first := httptest.NewRecorder()
	server.sendConditionalJSONResponse(first, httptest.NewRequest(http.MethodGet, "/", nil), data)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	tests := []struct {
		name        string
		ifNoneMatch string
		expected    int
	}{
		{name: "same body", ifNoneMatch: etag, expected: http.StatusNotModified},
		{name: "weak validator", ifNoneMatch: "W/" + etag, expected: http.StatusNotModified},
		{name: "one of many", ifNoneMatch: `"other", ` + etag, expected: http.StatusNotModified},
		{name: "wildcard", ifNoneMatch: "*", expected: http.StatusNotModified},
		{name: "changed body", ifNoneMatch: `"0123"`, expected: http.StatusOK},
		{name: "no header", ifNoneMatch: "", expected: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.ifNoneMatch != "" {
				r.Header.Set("If-None-Match", tt.ifNoneMatch)
			}
			recorder := httptest.NewRecorder()

			server.sendConditionalJSONResponse(recorder, r, data)

			assert.Equal(t, tt.expected, recorder.Code)
			assert.Equal(t, etag, recorder.Header().Get("ETag"))
			if tt.expected == http.StatusNotModified {
				assert.Zero(t, recorder.Body.Len())
			}
		})
	}
}

func TestSetCacheStatusHeader(t *testing.T) {
	server := &Server{}

	recorder := httptest.NewRecorder()
	server.setCacheStatusHeader(recorder, interfaces.CacheStatusStale)
	assert.Equal(t, "stale", recorder.Header().Get("Cache-Status"))

	recorder = httptest.NewRecorder()
	server.setCacheStatusHeader(recorder, "")
	assert.Empty(t, recorder.Header().Get("Cache-Status"))
}
