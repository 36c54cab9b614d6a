package events

import (
	"context"
	"sync"
)

// PricesUpdated is emitted after prices for CoinIDs were fetched and stored
type PricesUpdated struct {
	CoinIDs []string
}

// Contains reports whether any of ids is part of the update
func (e PricesUpdated) Contains(ids []string) bool {
	for _, updated := range e.CoinIDs {
		for _, id := range ids {
			if updated == id {
				return true
			}
		}
	}
	return false
}

// ISubscription is a single listener of price updates
type ISubscription interface {
	// Chan returns a read-only channel for self-handling events
	Chan() <-chan PricesUpdated
	// Cancel unsubscribes and closes the channel. Safe for repeated calls
	Cancel()
	// Watch starts a goroutine that calls cb on each event.
	// When parentCtx finishes, the subscription is automatically cancelled
	Watch(parentCtx context.Context, cb func(PricesUpdated)) ISubscription
}

type Subscription struct {
	ch     chan PricesUpdated
	mgr    *SubscriptionManager
	cancel context.CancelFunc
	once   sync.Once
}

func (s *Subscription) Chan() <-chan PricesUpdated { return s.ch }

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.mgr.unsubscribe(s.ch)
	})
}

func (s *Subscription) Watch(parentCtx context.Context, cb func(PricesUpdated)) ISubscription {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	go func() {
		defer s.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.ch:
				if !ok {
					return
				}
				cb(ev)
			}
		}
	}()

	return s
}

// SubscriptionManager fans price updates out to subscribers.
// A subscriber that has not consumed the previous update gets the ids merged into it.
type SubscriptionManager struct {
	mu          sync.Mutex
	subscribers map[chan PricesUpdated]struct{}
}

func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		subscribers: make(map[chan PricesUpdated]struct{}),
	}
}

func (m *SubscriptionManager) Subscribe() ISubscription {
	ch := make(chan PricesUpdated, 1)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	return &Subscription{ch: ch, mgr: m}
}

func (m *SubscriptionManager) unsubscribe(ch chan PricesUpdated) {
	m.mu.Lock()
	if _, ok := m.subscribers[ch]; ok {
		delete(m.subscribers, ch)
		close(ch)
	}
	m.mu.Unlock()
}

// Count returns the number of active subscriptions
func (m *SubscriptionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Emit delivers ev to every subscriber without blocking
func (m *SubscriptionManager) Emit(ctx context.Context, ev PricesUpdated) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sub := range m.subscribers {
		if ctx.Err() != nil {
			return
		}

		select {
		case sub <- ev:
			continue
		default:
		}

		// Pending update not consumed yet, merge ours into it
		select {
		case pending := <-sub:
			sub <- mergeUpdates(pending, ev)
		default:
			sub <- ev
		}
	}
}

func mergeUpdates(a, b PricesUpdated) PricesUpdated {
	seen := make(map[string]struct{}, len(a.CoinIDs)+len(b.CoinIDs))
	merged := make([]string, 0, len(a.CoinIDs)+len(b.CoinIDs))
	for _, ids := range [][]string{a.CoinIDs, b.CoinIDs} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return PricesUpdated{CoinIDs: merged}
}
