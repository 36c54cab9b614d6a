package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/status-im/portfolio-proxy/interfaces"
	"github.com/status-im/portfolio-proxy/metrics"
	"github.com/status-im/portfolio-proxy/portfolio"
)

type Server struct {
	port          string
	pricesService interfaces.PricesService
	portfolios    portfolio.Store
	analytics     *portfolio.Analytics
	priceFeed     http.Handler
	server        *http.Server
}

// New creates the HTTP server. priceFeed serves /ws/prices and may be nil.
func New(port string, pricesService interfaces.PricesService, portfolios portfolio.Store, priceFeed http.Handler) *Server {
	return &Server{
		port:          port,
		pricesService: pricesService,
		portfolios:    portfolios,
		analytics:     portfolio.NewAnalytics(pricesService),
		priceFeed:     priceFeed,
	}
}

// Handler returns the router with every endpoint registered
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(latencyMiddleware)

	router.HandleFunc("/api/v1/coins/prices", s.handlePrices).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/coins/search", s.handleSearch).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/simple/price", s.handleSimplePrice).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/portfolios", s.handleListPortfolios).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/portfolios", s.handleCreatePortfolio).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/portfolios/{id}", s.handleGetPortfolio).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/portfolios/{id}", s.handleDeletePortfolio).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/portfolios/{id}/transactions", s.handleListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/portfolios/{id}/transactions", s.handleAddTransaction).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/portfolios/{id}/transactions/{tx_id}", s.handleDeleteTransaction).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/portfolios/{id}/analytics", s.handleAnalytics).Methods(http.MethodGet)

	if s.priceFeed != nil {
		router.Handle("/ws/prices", s.priceFeed)
	}

	router.HandleFunc("/health", s.handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	log.Printf("Server starting at http://localhost:%s", s.port)
	log.Println("Prometheus metrics available at /metrics endpoint")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the server down, waiting up to 5s for requests in flight
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
}

// latencyMiddleware records request latency by route template
func latencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		metrics.RecordRequestLatency(endpoint, start)
	})
}
