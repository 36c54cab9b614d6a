package pricefeed

import (
	"encoding/json"
	"time"

	"github.com/status-im/portfolio-proxy/interfaces"
)

// Client actions
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
)

// Server message types
const (
	TypeSubscriptionConfirmed   = "subscription_confirmed"
	TypeUnsubscriptionConfirmed = "unsubscription_confirmed"
	TypePong                    = "pong"
	TypePriceUpdate             = "price_update"
	TypeError                   = "error"
)

// Request is a message sent by a client
type Request struct {
	Action    string          `json:"action"`
	CoinIDs   []string        `json:"coin_ids,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type subscriptionConfirmed struct {
	Type            string   `json:"type"`
	SubscribedCoins []string `json:"subscribed_coins"`
	NewlySubscribed []string `json:"newly_subscribed"`
}

type unsubscriptionConfirmed struct {
	Type            string   `json:"type"`
	SubscribedCoins []string `json:"subscribed_coins"`
	Unsubscribed    []string `json:"unsubscribed"`
}

type pong struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// PriceUpdate is pushed to a client for the coins it subscribed to
type PriceUpdate struct {
	Type      string                   `json:"type"`
	Prices    interfaces.PriceSnapshot `json:"prices"`
	Status    interfaces.CacheStatus   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newError(message string) errorMessage {
	return errorMessage{Type: TypeError, Message: message}
}
