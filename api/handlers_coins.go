package api

import (
	"net/http"

	"github.com/status-im/portfolio-proxy/interfaces"
)

// PricesResponse is returned by /api/v1/coins/prices
type PricesResponse struct {
	Prices interfaces.PriceSnapshot `json:"prices"`
	Status interfaces.CacheStatus   `json:"status"`
}

// SearchResponse is returned by /api/v1/coins/search
type SearchResponse struct {
	Coins []interfaces.CoinSearchResult `json:"coins"`
}

// handlePrices returns USD prices for ?ids=a,b together with the cache status.
// Prices that cannot be served are missing from the map, the request itself
// does not fail.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	ids := queryIDs(r, "ids")
	if len(ids) == 0 {
		http.Error(w, "Parameter 'ids' is required", http.StatusBadRequest)
		return
	}

	snapshot, status := s.pricesService.GetPrices(r.Context(), ids)

	s.setCacheStatusHeader(w, status)
	s.sendConditionalJSONResponse(w, r, PricesResponse{Prices: snapshot, Status: status})
}

// handleSimplePrice answers in the CoinGecko /simple/price shape: a map of
// coin id to quote
func (s *Server) handleSimplePrice(w http.ResponseWriter, r *http.Request) {
	ids := queryIDs(r, "ids")
	if len(ids) == 0 {
		http.Error(w, "Parameter 'ids' is required", http.StatusBadRequest)
		return
	}

	if currencies := queryIDs(r, "vs_currencies"); len(currencies) > 0 {
		for _, currency := range currencies {
			if currency != "usd" {
				http.Error(w, "Only 'usd' is supported in vs_currencies", http.StatusBadRequest)
				return
			}
		}
	}

	snapshot, status := s.pricesService.GetPrices(r.Context(), ids)

	s.setCacheStatusHeader(w, status)
	s.sendConditionalJSONResponse(w, r, snapshot)
}

// handleSearch returns up to 20 coins matching ?query=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := queryValue(r, "query", "q")

	coins := s.pricesService.SearchCoins(r.Context(), query)
	if coins == nil {
		coins = []interfaces.CoinSearchResult{}
	}

	s.sendConditionalJSONResponse(w, r, SearchResponse{Coins: coins})
}
