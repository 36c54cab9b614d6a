package e2etest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedMessage struct {
	Type            string          `json:"type"`
	SubscribedCoins []string        `json:"subscribed_coins"`
	Message         string          `json:"message"`
	Status          string          `json:"status"`
	Timestamp       json.RawMessage `json:"timestamp"`
	Prices          map[string]struct {
		USD float64 `json:"usd"`
	} `json:"prices"`
}

func dialPriceFeed(t *testing.T, env *TestEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.ServerBaseURL, "http") + "/ws/prices"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFeedMessage(t *testing.T, conn *websocket.Conn) feedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg feedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages of other types, e.g. periodic updates racing a reply
func readUntil(t *testing.T, conn *websocket.Conn, messageType string, accept func(feedMessage) bool) feedMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readFeedMessage(t, conn)
		if msg.Type == messageType && (accept == nil || accept(msg)) {
			return msg
		}
	}
	t.Fatalf("No %s message received", messageType)
	return feedMessage{}
}

func TestPriceFeed_SubscribeAndReceiveUpdates(t *testing.T) {
	env := SetupTest(t)
	conn := dialPriceFeed(t, env)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action":   "subscribe",
		"coin_ids": []string{"Bitcoin", "ethereum"},
	}))

	confirmed := readFeedMessage(t, conn)
	assert.Equal(t, "subscription_confirmed", confirmed.Type)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, confirmed.SubscribedCoins)

	update := readFeedMessage(t, conn)
	require.Equal(t, "price_update", update.Type)
	assert.Equal(t, "full", update.Status)
	assert.Equal(t, 45000.0, update.Prices["bitcoin"].USD)
	assert.Equal(t, 3000.0, update.Prices["ethereum"].USD)

	// A new upstream price reaches the client once the cached one expires
	env.MockServer.SetPrice("bitcoin", 46000)
	changed := readUntil(t, conn, "price_update", func(msg feedMessage) bool {
		return msg.Prices["bitcoin"].USD == 46000
	})
	assert.Equal(t, "full", changed.Status)

	var health struct {
		WebsocketClients int `json:"websocket_clients"`
	}
	getJSON(t, env.ServerBaseURL+"/health", &health)
	assert.Equal(t, 1, health.WebsocketClients)
}

func TestPriceFeed_PingAndErrors(t *testing.T) {
	env := SetupTest(t)
	conn := dialPriceFeed(t, env)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "ping", "timestamp": 1700000000}))
	pong := readFeedMessage(t, conn)
	assert.Equal(t, "pong", pong.Type)
	assert.JSONEq(t, "1700000000", string(pong.Timestamp))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	invalid := readFeedMessage(t, conn)
	assert.Equal(t, "error", invalid.Type)
	assert.Equal(t, "Invalid JSON format", invalid.Message)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "dance"}))
	unknown := readFeedMessage(t, conn)
	assert.Equal(t, "error", unknown.Type)
	assert.Equal(t, "Unknown action: dance", unknown.Message)
}
