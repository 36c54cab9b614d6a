package pricefeed

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 16
	maxMessageSize = 64 * 1024
)

// client is a single websocket connection and the coins it follows
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.Mutex
	coins map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		coins: make(map[string]struct{}),
		done:  make(chan struct{}),
	}
}

// subscribed returns the followed coins, sorted
func (c *client) subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.coins)
}

// subscribe adds ids and returns the ones that were not followed yet
func (c *client) subscribe(ids []string, limit int) (added []string, all []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added = []string{}
	for _, id := range ids {
		if _, ok := c.coins[id]; ok {
			continue
		}
		if limit > 0 && len(c.coins) >= limit {
			break
		}
		c.coins[id] = struct{}{}
		added = append(added, id)
	}
	return added, sortedKeys(c.coins)
}

func (c *client) unsubscribe(ids []string) (removed []string, all []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed = []string{}
	for _, id := range ids {
		if _, ok := c.coins[id]; ok {
			delete(c.coins, id)
			removed = append(removed, id)
		}
	}
	return removed, sortedKeys(c.coins)
}

func (c *client) follows(ids []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, ok := c.coins[id]; ok {
			return true
		}
	}
	return false
}

// enqueue marshals msg and queues it without blocking. A client that does not
// keep up loses the message.
func (c *client) enqueue(msg interface{}) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("PriceFeed: Error encoding message: %v", err)
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		log.Printf("PriceFeed: Send buffer full, dropping message for %s", c.conn.RemoteAddr())
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readLoop handles client requests until the connection fails
func (c *client) readLoop(ctx context.Context) {
	defer c.close()

	pongWait := c.hub.config.PongWait
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("PriceFeed: Error reading message: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(ctx, message)
	}
}

// writeLoop owns all writes to the connection
func (c *client) writeLoop() {
	pingPeriod := c.hub.config.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	writeTimeout := c.hub.config.WriteTimeout
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("PriceFeed: Error writing message: %v", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (c *client) handle(ctx context.Context, message []byte) {
	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		c.enqueue(newError("Invalid JSON format"))
		return
	}

	switch req.Action {
	case ActionSubscribe:
		added, all := c.subscribe(normalizeIDs(req.CoinIDs), c.hub.config.MaxCoinsPerClient)
		c.enqueue(subscriptionConfirmed{
			Type:            TypeSubscriptionConfirmed,
			SubscribedCoins: all,
			NewlySubscribed: added,
		})
		if len(added) > 0 {
			go c.hub.pushTo(ctx, c)
		}
	case ActionUnsubscribe:
		removed, all := c.unsubscribe(normalizeIDs(req.CoinIDs))
		c.enqueue(unsubscriptionConfirmed{
			Type:            TypeUnsubscriptionConfirmed,
			SubscribedCoins: all,
			Unsubscribed:    removed,
		})
	case ActionPing:
		c.enqueue(pong{Type: TypePong, Timestamp: req.Timestamp})
	default:
		c.enqueue(newError("Unknown action: " + req.Action))
	}
}

func normalizeIDs(ids []string) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			result = append(result, id)
		}
	}
	return result
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
