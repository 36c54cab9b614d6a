package e2etest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockServer imitates the CoinGecko endpoints the proxy calls
type MockServer struct {
	server *httptest.Server

	mu       sync.RWMutex
	prices   map[string]map[string]float64
	coins    []map[string]interface{}
	failWith int
	delay    time.Duration

	priceRequests  atomic.Int32
	searchRequests atomic.Int32
}

// NewMockServer creates and starts a mock CoinGecko server
func NewMockServer() *MockServer {
	ms := &MockServer{
		prices: map[string]map[string]float64{
			"bitcoin":  {"usd": 45000, "usd_24h_change": 2.5, "usd_market_cap": 880000000000, "usd_24h_vol": 25000000000},
			"ethereum": {"usd": 3000, "usd_24h_change": -1.2, "usd_market_cap": 360000000000, "usd_24h_vol": 12000000000},
			"solana":   {"usd": 100, "usd_24h_change": 5.0},
		},
		coins: []map[string]interface{}{
			{"id": "bitcoin", "name": "Bitcoin", "symbol": "BTC", "market_cap_rank": 1, "thumb": "https://example.com/btc.png"},
			{"id": "wrapped-bitcoin", "name": "Wrapped Bitcoin", "symbol": "WBTC", "market_cap_rank": 15},
			{"id": "ethereum", "name": "Ethereum", "symbol": "ETH", "market_cap_rank": 2},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/simple/price", ms.handleSimplePrice)
	mux.HandleFunc("/api/v3/search", ms.handleSearch)
	ms.server = httptest.NewServer(mux)

	return ms
}

// GetURL returns the base URL of the mock server
func (ms *MockServer) GetURL() string {
	return ms.server.URL
}

// Close shuts the mock server down
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetPrice sets the usd price of a coin
func (ms *MockServer) SetPrice(id string, usd float64) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.prices[id] == nil {
		ms.prices[id] = map[string]float64{}
	}
	ms.prices[id]["usd"] = usd
}

// FailWith makes every request answer with status. 0 restores normal answers.
func (ms *MockServer) FailWith(status int) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.failWith = status
}

// SetDelay delays every answer
func (ms *MockServer) SetDelay(d time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.delay = d
}

// PriceRequests returns the number of /simple/price calls received
func (ms *MockServer) PriceRequests() int {
	return int(ms.priceRequests.Load())
}

// SearchRequests returns the number of /search calls received
func (ms *MockServer) SearchRequests() int {
	return int(ms.searchRequests.Load())
}

func (ms *MockServer) answer(w http.ResponseWriter) bool {
	ms.mu.RLock()
	failWith, delay := ms.failWith, ms.delay
	ms.mu.RUnlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failWith != 0 {
		http.Error(w, http.StatusText(failWith), failWith)
		return false
	}
	return true
}

func (ms *MockServer) handleSimplePrice(w http.ResponseWriter, r *http.Request) {
	ms.priceRequests.Add(1)
	if !ms.answer(w) {
		return
	}

	ms.mu.RLock()
	result := make(map[string]map[string]float64)
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if quote, ok := ms.prices[id]; ok {
			copied := make(map[string]float64, len(quote))
			for k, v := range quote {
				copied[k] = v
			}
			result[id] = copied
		}
	}
	ms.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (ms *MockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	ms.searchRequests.Add(1)
	if !ms.answer(w) {
		return
	}

	query := strings.ToLower(r.URL.Query().Get("query"))

	ms.mu.RLock()
	coins := make([]map[string]interface{}, 0)
	for _, coin := range ms.coins {
		if strings.Contains(strings.ToLower(coin["name"].(string)), query) {
			coins = append(coins, coin)
		}
	}
	ms.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"coins": coins})
}
