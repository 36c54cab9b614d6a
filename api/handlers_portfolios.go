package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/status-im/portfolio-proxy/portfolio"
)

const maxBodySize = 1 << 20

type transactionView struct {
	portfolio.Transaction
	TotalValue float64 `json:"total_value"`
}

type portfolioView struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	CreatedAt        time.Time         `json:"created_at"`
	TransactionCount int               `json:"transaction_count"`
	Transactions     []transactionView `json:"transactions"`
}

type createPortfolioRequest struct {
	Name string `json:"name"`
}

func newTransactionView(tx portfolio.Transaction) transactionView {
	return transactionView{Transaction: tx, TotalValue: tx.TotalValue()}
}

func newTransactionViews(txs []portfolio.Transaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, newTransactionView(tx))
	}
	return views
}

func newPortfolioView(p portfolio.Portfolio) portfolioView {
	return portfolioView{
		ID:               p.ID,
		Name:             p.Name,
		CreatedAt:        p.CreatedAt,
		TransactionCount: len(p.Transactions),
		Transactions:     newTransactionViews(p.Transactions),
	}
}

// writeStoreError maps portfolio store errors to status codes and {"error": ...} bodies
func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		sendJSONError(w, http.StatusNotFound, notFound)
	case errors.Is(err, portfolio.ErrInvalid):
		sendJSONError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Portfolio store error: %v", err)
		sendJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(dst); err != nil {
		sendJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := s.portfolios.ListPortfolios(r.Context())
	if err != nil {
		writeStoreError(w, err, "Portfolio not found")
		return
	}

	views := make([]portfolioView, 0, len(portfolios))
	for _, p := range portfolios {
		views = append(views, newPortfolioView(p))
	}
	s.sendJSONResponse(w, map[string]interface{}{"portfolios": views})
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.portfolios.CreatePortfolio(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err, "Portfolio not found")
		return
	}
	s.sendJSONResponseWithStatus(w, nil, http.StatusCreated, newPortfolioView(*p))
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.portfolios.GetPortfolio(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "Portfolio not found")
		return
	}
	s.sendJSONResponse(w, newPortfolioView(*p))
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.portfolios.DeletePortfolio(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err, "Portfolio not found")
		return
	}
	s.sendJSONResponse(w, map[string]string{"message": "Portfolio deleted"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.portfolios.ListTransactions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "Portfolio not found")
		return
	}
	s.sendJSONResponse(w, map[string]interface{}{"transactions": newTransactionViews(txs)})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req portfolio.NewTransaction
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := s.portfolios.AddTransaction(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeStoreError(w, err, "Portfolio not found")
		return
	}
	s.sendJSONResponseWithStatus(w, nil, http.StatusCreated, newTransactionView(*tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.portfolios.DeleteTransaction(r.Context(), vars["id"], vars["tx_id"]); err != nil {
		writeStoreError(w, err, "Transaction not found")
		return
	}
	s.sendJSONResponse(w, map[string]string{"message": "Transaction deleted"})
}

// handleAnalytics values the portfolio with current prices. The Cache-Status
// header tells how fresh those prices were.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	p, err := s.portfolios.GetPortfolio(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "Portfolio not found")
		return
	}

	metrics := s.analytics.Calculate(r.Context(), p)

	s.setCacheStatusHeader(w, metrics.PriceStatus)
	s.sendJSONResponse(w, metrics)
}
