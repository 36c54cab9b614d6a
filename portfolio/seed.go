package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// SamplePortfolio is a portfolio to create together with its transactions
type SamplePortfolio struct {
	Name         string
	Transactions []NewTransaction
}

// SampleData is what the seed command loads
var SampleData = []SamplePortfolio{
	{
		Name: "Jose's Portfolio",
		Transactions: []NewTransaction{
			{CoinID: "bitcoin", CoinName: "Bitcoin", CoinSymbol: "BTC", Amount: 0.01, PriceUSD: 50000, Type: Buy},
			{CoinID: "ethereum", CoinName: "Ethereum", CoinSymbol: "ETH", Amount: 0.5, PriceUSD: 2000, Type: Buy},
			{CoinID: "cardano", CoinName: "Cardano", CoinSymbol: "ADA", Amount: 100, PriceUSD: 1.5, Type: Buy},
			{CoinID: "bitcoin", CoinName: "Bitcoin", CoinSymbol: "BTC", Amount: 0.005, PriceUSD: 52000, Type: Sell},
		},
	},
	{
		Name: "Sample Portfolio",
		Transactions: []NewTransaction{
			{CoinID: "solana", CoinName: "Solana", CoinSymbol: "SOL", Amount: 2, PriceUSD: 100, Type: Buy},
			{CoinID: "ethereum", CoinName: "Ethereum", CoinSymbol: "ETH", Amount: 0.2, PriceUSD: 2100, Type: Buy},
			{CoinID: "dogecoin", CoinName: "Dogecoin", CoinSymbol: "DOGE", Amount: 500, PriceUSD: 0.08, Type: Buy},
		},
	},
}

// Seed deletes every portfolio in store, then creates samples in order.
// The created portfolios are returned with their transactions.
func Seed(ctx context.Context, store Store, samples []SamplePortfolio) ([]*Portfolio, error) {
	existing, err := store.ListPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	for _, p := range existing {
		if err := store.DeletePortfolio(ctx, p.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to delete portfolio %s: %w", p.ID, err)
		}
	}
	log.Printf("Seed: Removed %d portfolios", len(existing))

	seeded := make([]*Portfolio, 0, len(samples))
	for _, sample := range samples {
		p, err := store.CreatePortfolio(ctx, sample.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create portfolio %q: %w", sample.Name, err)
		}
		for _, n := range sample.Transactions {
			tx, err := store.AddTransaction(ctx, p.ID, n)
			if err != nil {
				return nil, fmt.Errorf("failed to add %s transaction to %q: %w", n.CoinID, sample.Name, err)
			}
			p.Transactions = append(p.Transactions, *tx)
		}
		seeded = append(seeded, p)
	}
	log.Printf("Seed: Created %d portfolios", len(seeded))

	return seeded, nil
}
