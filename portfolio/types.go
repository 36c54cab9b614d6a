package portfolio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a portfolio or transaction does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps every validation failure
	ErrInvalid = errors.New("invalid input")
)

// TransactionType is either a buy or a sell
type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

// Transaction is a single buy or sell of a coin
type Transaction struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"-"`
	CoinID      string          `json:"coin_id"`
	CoinName    string          `json:"coin_name"`
	CoinSymbol  string          `json:"coin_symbol"`
	Amount      float64         `json:"amount"`
	PriceUSD    float64         `json:"price_usd"`
	Type        TransactionType `json:"transaction_type"`
	Timestamp   time.Time       `json:"timestamp"`
}

// TotalValue is amount times the price paid
func (t Transaction) TotalValue() float64 {
	return t.Amount * t.PriceUSD
}

// Portfolio is a named list of transactions
type Portfolio struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CreatedAt    time.Time     `json:"created_at"`
	Transactions []Transaction `json:"transactions"`
}

// NewTransaction is the user supplied part of a transaction
type NewTransaction struct {
	CoinID     string          `json:"coin_id"`
	CoinName   string          `json:"coin_name"`
	CoinSymbol string          `json:"coin_symbol"`
	Amount     float64         `json:"amount"`
	PriceUSD   float64         `json:"price_usd"`
	Type       TransactionType `json:"transaction_type"`
}

// Validate trims the fields, upper-cases the symbol and checks the values
func (n *NewTransaction) Validate() error {
	n.CoinID = strings.ToLower(strings.TrimSpace(n.CoinID))
	n.CoinName = strings.TrimSpace(n.CoinName)
	n.CoinSymbol = strings.ToUpper(strings.TrimSpace(n.CoinSymbol))

	switch {
	case n.CoinID == "":
		return fmt.Errorf("%w: coin_id is required", ErrInvalid)
	case n.CoinName == "":
		return fmt.Errorf("%w: coin_name is required", ErrInvalid)
	case n.CoinSymbol == "":
		return fmt.Errorf("%w: coin_symbol is required", ErrInvalid)
	case n.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	case n.PriceUSD <= 0:
		return fmt.Errorf("%w: price_usd must be positive", ErrInvalid)
	case n.Type != Buy && n.Type != Sell:
		return fmt.Errorf("%w: transaction_type must be %q or %q", ErrInvalid, Buy, Sell)
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: portfolio name is required", ErrInvalid)
	}
	return name, nil
}

// validID reports whether id parses as a UUID. Lookups with malformed ids are
// answered with ErrNotFound without touching the store.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newTransaction(portfolioID string, n NewTransaction, now time.Time) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		CoinID:      n.CoinID,
		CoinName:    n.CoinName,
		CoinSymbol:  n.CoinSymbol,
		Amount:      n.Amount,
		PriceUSD:    n.PriceUSD,
		Type:        n.Type,
		Timestamp:   now,
	}
}
