package pricefeed

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/status-im/portfolio-proxy/config"
	"github.com/status-im/portfolio-proxy/events"
	"github.com/status-im/portfolio-proxy/interfaces"
	"github.com/status-im/portfolio-proxy/metrics"
	"github.com/status-im/portfolio-proxy/scheduler"
)

// Hub pushes prices to websocket clients. Every client gets the coins it
// subscribed to on a fixed interval, and right away when those prices change.
type Hub struct {
	config   config.PriceFeedConfig
	prices   interfaces.PricesService
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}

	scheduler    *scheduler.Scheduler
	subscription events.ISubscription
}

// NewHub creates a hub serving prices from the given service
func NewHub(cfg config.PriceFeedConfig, prices interfaces.PricesService) *Hub {
	defaults := config.DefaultPriceFeedConfig()
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = defaults.UpdateInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}

	h := &Hub{
		config: cfg,
		prices: prices,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
	h.scheduler = scheduler.New(cfg.UpdateInterval, h.pushAll)
	return h
}

// Start begins periodic pushes and listens for price updates
func (h *Hub) Start(ctx context.Context) error {
	h.scheduler.Start(ctx, false)
	h.subscription = h.prices.SubscribePricesUpdate().Watch(ctx, h.onPricesUpdated)
	return nil
}

// Stop ends pushes and closes every connection
func (h *Hub) Stop() {
	if h.subscription != nil {
		h.subscription.Cancel()
	}
	h.scheduler.Stop()

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Clients returns the number of open connections
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("PriceFeed: Upgrade failed: %v", err)
		return
	}

	c := newClient(h, conn)
	h.register(c)
	defer h.unregister(c)

	go c.writeLoop()
	c.readLoop(r.Context())
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.RecordWebSocketClients(count)
}

func (h *Hub) unregister(c *client) {
	c.close()

	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	metrics.RecordWebSocketClients(count)
}

func (h *Hub) snapshotClients() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// onPricesUpdated triggers an early push when a client follows an updated coin
func (h *Hub) onPricesUpdated(ev events.PricesUpdated) {
	for _, c := range h.snapshotClients() {
		if c.follows(ev.CoinIDs) {
			h.scheduler.Trigger()
			return
		}
	}
}

// pushAll fetches the union of all subscriptions once and sends every client
// its part
func (h *Hub) pushAll(ctx context.Context) {
	clients := h.snapshotClients()

	union := make(map[string]struct{})
	for _, c := range clients {
		for _, id := range c.subscribed() {
			union[id] = struct{}{}
		}
	}
	if len(union) == 0 {
		return
	}

	snapshot, status := h.prices.GetPrices(ctx, sortedKeys(union))
	if len(snapshot) == 0 {
		return
	}

	for _, c := range clients {
		h.send(c, snapshot, status)
	}
}

// pushTo sends a single client its prices right away
func (h *Hub) pushTo(ctx context.Context, c *client) {
	ids := c.subscribed()
	if len(ids) == 0 {
		return
	}

	snapshot, status := h.prices.GetPrices(ctx, ids)
	h.send(c, snapshot, status)
}

func (h *Hub) send(c *client, snapshot interfaces.PriceSnapshot, status interfaces.CacheStatus) {
	prices := interfaces.PriceSnapshot{}
	for _, id := range c.subscribed() {
		if record, ok := snapshot[id]; ok {
			prices[id] = record
		}
	}
	if len(prices) == 0 {
		return
	}

	c.enqueue(PriceUpdate{
		Type:      TypePriceUpdate,
		Prices:    prices,
		Status:    status,
		Timestamp: h.now().UTC(),
	})
}
