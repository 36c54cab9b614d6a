package api

import (
	"net/http"
)

type healthChecker interface {
	Healthy() bool
}

type clientCounter interface {
	Clients() int
}

// handleHealth responds with 200 OK to indicate the service is running
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"coingecko_prices": "unknown",
		"portfolios":       "up",
	}
	status := map[string]interface{}{
		"status":   "ok",
		"services": services,
	}

	if checker, ok := s.pricesService.(healthChecker); ok && checker.Healthy() {
		services["coingecko_prices"] = "up"
	}

	if counter, ok := s.priceFeed.(clientCounter); ok {
		status["websocket_clients"] = counter.Clients()
	}

	s.sendJSONResponse(w, status)
}
