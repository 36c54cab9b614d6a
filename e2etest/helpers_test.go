package e2etest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// doJSON sends body (if any) as JSON and decodes the answer into out (if any)
func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "Request %s %s failed", method, url)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(data, out), "Invalid JSON: %s", data)
	}
	return resp
}

// getJSON is doJSON for GET requests
func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodGet, url, nil, out)
}

type pricesResponse struct {
	Prices map[string]struct {
		USD          float64 `json:"usd"`
		USD24hChange float64 `json:"usd_24h_change"`
	} `json:"prices"`
	Status string `json:"status"`
}
