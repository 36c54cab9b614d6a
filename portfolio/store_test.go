package portfolio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/portfolio-proxy/config"
)

func buyBitcoin(amount, price float64) NewTransaction {
	return NewTransaction{
		CoinID:     "bitcoin",
		CoinName:   "Bitcoin",
		CoinSymbol: "btc",
		Amount:     amount,
		PriceUSD:   price,
		Type:       Buy,
	}
}

// runStoreTests checks the behaviour every Store implementation shares
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)

		created, err := store.CreatePortfolio(ctx, "  Long term  ")
		require.NoError(t, err)
		assert.Equal(t, "Long term", created.Name)
		assert.NotEmpty(t, created.ID)
		assert.Empty(t, created.Transactions)
		_, err = uuid.Parse(created.ID)
		assert.NoError(t, err)

		got, err := store.GetPortfolio(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Long term", got.Name)
	})

	t.Run("name is required", func(t *testing.T) {
		store := newStore(t)
		_, err := store.CreatePortfolio(ctx, "   ")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unknown ids", func(t *testing.T) {
		store := newStore(t)
		missing := uuid.NewString()

		_, err := store.GetPortfolio(ctx, missing)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetPortfolio(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.DeletePortfolio(ctx, missing), ErrNotFound)
		_, err = store.ListTransactions(ctx, missing)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.AddTransaction(ctx, missing, buyBitcoin(1, 100))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transactions", func(t *testing.T) {
		store := newStore(t)
		p, err := store.CreatePortfolio(ctx, "Main")
		require.NoError(t, err)

		tx, err := store.AddTransaction(ctx, p.ID, buyBitcoin(0.5, 40000))
		require.NoError(t, err)
		assert.Equal(t, "BTC", tx.CoinSymbol, "symbol is upper-cased")
		assert.Equal(t, 20000.0, tx.TotalValue())

		txs, err := store.ListTransactions(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, tx.ID, txs[0].ID)
		assert.Equal(t, Buy, txs[0].Type)

		got, err := store.GetPortfolio(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got.Transactions, 1)

		assert.ErrorIs(t, store.DeleteTransaction(ctx, p.ID, uuid.NewString()), ErrNotFound)
		require.NoError(t, store.DeleteTransaction(ctx, p.ID, tx.ID))
		txs, err = store.ListTransactions(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("transaction belongs to its portfolio", func(t *testing.T) {
		store := newStore(t)
		first, err := store.CreatePortfolio(ctx, "First")
		require.NoError(t, err)
		second, err := store.CreatePortfolio(ctx, "Second")
		require.NoError(t, err)

		tx, err := store.AddTransaction(ctx, first.ID, buyBitcoin(1, 100))
		require.NoError(t, err)

		assert.ErrorIs(t, store.DeleteTransaction(ctx, second.ID, tx.ID), ErrNotFound)
	})

	t.Run("invalid transaction", func(t *testing.T) {
		store := newStore(t)
		p, err := store.CreatePortfolio(ctx, "Main")
		require.NoError(t, err)

		bad := buyBitcoin(0, 100)
		_, err = store.AddTransaction(ctx, p.ID, bad)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("delete portfolio removes transactions", func(t *testing.T) {
		store := newStore(t)
		p, err := store.CreatePortfolio(ctx, "Main")
		require.NoError(t, err)
		_, err = store.AddTransaction(ctx, p.ID, buyBitcoin(1, 100))
		require.NoError(t, err)

		require.NoError(t, store.DeletePortfolio(ctx, p.ID))
		_, err = store.GetPortfolio(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.ListTransactions(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("seed", func(t *testing.T) {
		store := newStore(t)
		_, err := store.CreatePortfolio(ctx, "Old")
		require.NoError(t, err)

		seeded, err := Seed(ctx, store, SampleData)
		require.NoError(t, err)

		portfolios, err := store.ListPortfolios(ctx)
		require.NoError(t, err)
		require.Len(t, portfolios, len(SampleData))

		for i, sample := range SampleData {
			got, err := store.GetPortfolio(ctx, seeded[i].ID)
			require.NoError(t, err)
			assert.Equal(t, sample.Name, got.Name)
			assert.Len(t, got.Transactions, len(sample.Transactions))
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	runStoreTests(t, func(t *testing.T) Store {
		store := NewPostgresStore(dsn)
		require.NoError(t, store.Start(context.Background()))
		t.Cleanup(func() {
			store.db.Exec(`TRUNCATE portfolios CASCADE`)
			store.Stop()
		})
		return store
	})
}

func TestMemoryStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	older, err := store.CreatePortfolio(ctx, "Older")
	require.NoError(t, err)
	now = now.Add(time.Minute)
	newer, err := store.CreatePortfolio(ctx, "Newer")
	require.NoError(t, err)

	list, err := store.ListPortfolios(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")
	assert.Equal(t, older.ID, list[1].ID)

	first, err := store.AddTransaction(ctx, older.ID, buyBitcoin(1, 100))
	require.NoError(t, err)
	now = now.Add(time.Minute)
	second, err := store.AddTransaction(ctx, older.ID, buyBitcoin(2, 200))
	require.NoError(t, err)

	txs, err := store.ListTransactions(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, first.ID, txs[0].ID, "oldest transaction first")
	assert.Equal(t, second.ID, txs[1].ID)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p, err := store.CreatePortfolio(ctx, "Main")
	require.NoError(t, err)
	_, err = store.AddTransaction(ctx, p.ID, buyBitcoin(1, 100))
	require.NoError(t, err)

	got, err := store.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	got.Name = "changed"
	got.Transactions[0].Amount = 99

	again, err := store.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", again.Name)
	assert.Equal(t, 1.0, again.Transactions[0].Amount)
}

func TestNewTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(n *NewTransaction)
		wantErr string
	}{
		{name: "valid", mutate: func(n *NewTransaction) {}},
		{name: "missing coin id", mutate: func(n *NewTransaction) { n.CoinID = " " }, wantErr: "coin_id"},
		{name: "missing coin name", mutate: func(n *NewTransaction) { n.CoinName = "" }, wantErr: "coin_name"},
		{name: "missing symbol", mutate: func(n *NewTransaction) { n.CoinSymbol = "" }, wantErr: "coin_symbol"},
		{name: "negative amount", mutate: func(n *NewTransaction) { n.Amount = -1 }, wantErr: "amount"},
		{name: "zero price", mutate: func(n *NewTransaction) { n.PriceUSD = 0 }, wantErr: "price_usd"},
		{name: "unknown type", mutate: func(n *NewTransaction) { n.Type = "hold" }, wantErr: "transaction_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := buyBitcoin(1, 100)
			tt.mutate(&n)
			err := n.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "BTC", n.CoinSymbol)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(config.PortfolioConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore(config.PortfolioConfig{Driver: "postgres", DatabaseURL: "postgres://localhost/test"})
	require.NoError(t, err)
	assert.IsType(t, &PostgresStore{}, store)

	_, err = NewStore(config.PortfolioConfig{Driver: "sqlite"})
	assert.Error(t, err)
}
