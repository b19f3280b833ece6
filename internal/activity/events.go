// Package activity describes what visitors do in the storefront as events,
// publishes them to Kafka and tallies them on the consuming side.
package activity

import (
	"encoding/json"
	"time"
)

const (
	EventUserLoggedIn = "UserLoggedIn"
	EventCartUpdated  = "CartUpdated"
	EventOrderPlaced  = "OrderPlaced"
)

const TopicActivity = "storefront.activity"

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the Event* constants
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`                 // e.g. "storefront"
	CorrelationID string          `json:"correlation_id,omitempty"` // visitor id
	Payload       json.RawMessage `json:"payload"`
}

type UserLoggedInPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type CartAction string

const (
	CartAdd    CartAction = "add"
	CartUpdate CartAction = "update"
	CartRemove CartAction = "remove"
)

type CartUpdatedPayload struct {
	UserID        string     `json:"user_id"`
	Action        CartAction `json:"action"`
	Ref           string     `json:"ref"` // product id for add, item id otherwise
	Quantity      int        `json:"quantity,omitempty"`
	Items         int        `json:"items"`
	SubtotalMinor int64      `json:"subtotal_minor"`
}

type OrderPlacedPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	Items       int    `json:"items"`
	AmountMinor int64  `json:"amount_minor"`
}

// PartitionKey keeps one visitor's events in order.
func PartitionKey(visitorID string) []byte { return []byte(visitorID) }
