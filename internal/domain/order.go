package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryLinear is the venue product category for USDT-perpetual futures.
const CategoryLinear = "linear"

// OrderRequest is the order payload assembled for the venue.
// Price, TakeProfit and StopLoss are nil when not requested; a nil field
// is never sent to the venue.
type OrderRequest struct {
	Category    string
	Symbol      string
	Side        Side
	OrderType   OrderType
	Qty         decimal.Decimal
	Price       *decimal.Decimal
	TimeInForce string
	TakeProfit  *decimal.Decimal
	StopLoss    *decimal.Decimal
	// OrderLinkID correlates the submission with journal records.
	OrderLinkID string
}

// OrderResult is the normalized outcome of a successful submission.
// The request and plan are carried back to the caller for display and audit.
type OrderResult struct {
	OrderID string
	Request *OrderRequest
	Plan    ExecutionPlan
}

// AccountSnapshot is an ephemeral read of venue wallet state,
// mapping currency code to wallet balance.
type AccountSnapshot map[string]decimal.Decimal

// Balance returns the wallet balance for the given coin, zero if absent.
func (s AccountSnapshot) Balance(coin string) decimal.Decimal {
	return s[coin]
}

// OrderEvent is a domain event describing one order attempt.
// String fields avoid precision issues when rendered in UI layers.
type OrderEvent struct {
	Timestamp   time.Time `json:"ts"`
	UserID      int64     `json:"user_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	OrderType   string    `json:"order_type"`
	Qty         string    `json:"qty,omitempty"`
	Price       string    `json:"price,omitempty"`
	OrderID     string    `json:"order_id,omitempty"`
	OrderLinkID string    `json:"order_link_id,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// OrderEventRecord bundles an event with the log index it originated from.
type OrderEventRecord struct {
	Index uint64
	Event OrderEvent
}

const (
	// OrderStatusAccepted marks an attempt the venue accepted.
	OrderStatusAccepted = "accepted"
	// OrderStatusRejected marks an attempt that failed at any pipeline step.
	OrderStatusRejected = "rejected"
)
