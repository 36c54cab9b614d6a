package portfolio

import (
	"context"
	"fmt"

	"github.com/status-im/portfolio-proxy/config"
)

// Store persists portfolios and their transactions.
// Portfolios are listed newest first, transactions oldest first.
type Store interface {
	Start(ctx context.Context) error
	Stop()

	CreatePortfolio(ctx context.Context, name string) (*Portfolio, error)
	ListPortfolios(ctx context.Context) ([]Portfolio, error)
	GetPortfolio(ctx context.Context, id string) (*Portfolio, error)
	DeletePortfolio(ctx context.Context, id string) error

	AddTransaction(ctx context.Context, portfolioID string, tx NewTransaction) (*Transaction, error)
	ListTransactions(ctx context.Context, portfolioID string) ([]Transaction, error)
	DeleteTransaction(ctx context.Context, portfolioID, transactionID string) error
}

// NewStore creates the store selected by the portfolio config
func NewStore(cfg config.PortfolioConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(cfg.DatabaseURL), nil
	default:
		return nil, fmt.Errorf("unknown portfolio driver %q", cfg.Driver)
	}
}
