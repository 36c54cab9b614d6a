package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id UUID PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS portfolio_transactions (
	id UUID PRIMARY KEY,
	portfolio_id UUID NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	coin_id VARCHAR(100) NOT NULL,
	coin_name VARCHAR(200) NOT NULL,
	coin_symbol VARCHAR(20) NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	price_usd DOUBLE PRECISION NOT NULL,
	transaction_type VARCHAR(4) NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_portfolio_transactions_portfolio ON portfolio_transactions(portfolio_id, timestamp);
`

// PostgresStore keeps portfolios in PostgreSQL
type PostgresStore struct {
	connStr string
	db      *sql.DB
	now     func() time.Time
}

// NewPostgresStore creates a store for connStr. The connection is opened on Start.
func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{
		connStr: connStr,
		now:     time.Now,
	}
}

// Start opens the database and creates the tables
func (s *PostgresStore) Start(ctx context.Context) error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	if err := s.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	log.Printf("PortfolioStore: Connected to postgres")
	return nil
}

// Stop closes the database
func (s *PostgresStore) Stop() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("PortfolioStore: Error closing database: %v", err)
		}
	}
}

// InitSchema creates the portfolio tables if they do not exist
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) CreatePortfolio(ctx context.Context, name string) (*Portfolio, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	p := &Portfolio{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    s.now().UTC(),
		Transactions: []Transaction{},
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, name, created_at) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM portfolios ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	result := []Portfolio{}
	for rows.Next() {
		var p Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		txs, err := s.queryTransactions(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Transactions = txs
	}
	return result, nil
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, id string) (*Portfolio, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	var p Portfolio
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM portfolios WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}

	p.Transactions, err = s.queryTransactions(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) DeletePortfolio(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return expectAffected(res)
}

func (s *PostgresStore) AddTransaction(ctx context.Context, portfolioID string, tx NewTransaction) (*Transaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensurePortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}

	created := newTransaction(portfolioID, tx, s.now().UTC())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_transactions
			(id, portfolio_id, coin_id, coin_name, coin_symbol, amount, price_usd, transaction_type, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		created.ID, created.PortfolioID, created.CoinID, created.CoinName, created.CoinSymbol,
		created.Amount, created.PriceUSD, string(created.Type), created.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, portfolioID string) ([]Transaction, error) {
	if err := s.ensurePortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, portfolioID)
}

func (s *PostgresStore) DeleteTransaction(ctx context.Context, portfolioID, transactionID string) error {
	if !validID(portfolioID) || !validID(transactionID) {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM portfolio_transactions WHERE id = $1 AND portfolio_id = $2`,
		transactionID, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectAffected(res)
}

func (s *PostgresStore) ensurePortfolio(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM portfolios WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query portfolio: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryTransactions(ctx context.Context, portfolioID string) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, portfolio_id, coin_id, coin_name, coin_symbol, amount, price_usd, transaction_type, timestamp
		FROM portfolio_transactions
		WHERE portfolio_id = $1
		ORDER BY timestamp, id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	result := []Transaction{}
	for rows.Next() {
		var tx Transaction
		var txType string
		if err := rows.Scan(&tx.ID, &tx.PortfolioID, &tx.CoinID, &tx.CoinName, &tx.CoinSymbol,
			&tx.Amount, &tx.PriceUSD, &txType, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Type = TransactionType(txType)
		result = append(result, tx)
	}
	return result, rows.Err()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
