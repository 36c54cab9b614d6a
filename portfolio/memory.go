package portfolio

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps portfolios in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	portfolios map[string]*Portfolio
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[string]*Portfolio),
		now:        time.Now,
	}
}

func (m *MemoryStore) Start(ctx context.Context) error { return nil }
func (m *MemoryStore) Stop()                           {}

func (m *MemoryStore) CreatePortfolio(ctx context.Context, name string) (*Portfolio, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	p := &Portfolio{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    m.now().UTC(),
		Transactions: []Transaction{},
	}

	m.mu.Lock()
	m.portfolios[p.ID] = p
	m.mu.Unlock()

	return clonePortfolio(p), nil
}

func (m *MemoryStore) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	m.mu.RLock()
	result := make([]Portfolio, 0, len(m.portfolios))
	for _, p := range m.portfolios {
		result = append(result, *clonePortfolio(p))
	}
	m.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryStore) GetPortfolio(ctx context.Context, id string) (*Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.portfolios[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePortfolio(p), nil
}

func (m *MemoryStore) DeletePortfolio(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.portfolios[id]; !ok {
		return ErrNotFound
	}
	delete(m.portfolios, id)
	return nil
}

func (m *MemoryStore) AddTransaction(ctx context.Context, portfolioID string, tx NewTransaction) (*Transaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.portfolios[portfolioID]
	if !ok {
		return nil, ErrNotFound
	}

	created := newTransaction(portfolioID, tx, m.now().UTC())
	p.Transactions = append(p.Transactions, created)
	return &created, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, portfolioID string) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.portfolios[portfolioID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Transaction{}, p.Transactions...), nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, portfolioID, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.portfolios[portfolioID]
	if !ok {
		return ErrNotFound
	}
	for i, tx := range p.Transactions {
		if tx.ID == transactionID {
			p.Transactions = append(p.Transactions[:i], p.Transactions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func clonePortfolio(p *Portfolio) *Portfolio {
	c := *p
	c.Transactions = append([]Transaction{}, p.Transactions...)
	return &c
}
