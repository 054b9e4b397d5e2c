// Package domain defines core data structures used throughout the signal bot.
package domain

import (
	"github.com/shopspring/decimal"
)

// Direction represents the side of a trading signal.
type Direction int

const (
	// DirectionNone represents no direction or an undefined direction
	DirectionNone Direction = iota
	// DirectionLong opens a long position
	DirectionLong
	// DirectionShort opens a short position
	DirectionShort
)

// String returns the string representation.
func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "LONG"
	case DirectionShort:
		return "SHORT"
	default:
		return "NONE"
	}
}

// Side returns the order side implied by the direction.
func (d Direction) Side() Side {
	if d == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// OrderType represents how an order is executed.
type OrderType int

const (
	// OrderTypeMarket executes at the current market price
	OrderTypeMarket OrderType = iota
	// OrderTypeLimit executes at the specified entry price
	OrderTypeLimit
)

// String returns the string representation.
func (o OrderType) String() string {
	if o == OrderTypeLimit {
		return "LIMIT"
	}
	return "MARKET"
}

// Side is the order side sent to the venue.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// TradingSignal is a structured trading instruction extracted from free text.
// It is immutable once parsed; the resolved execution price lives in ExecutionPlan.
type TradingSignal struct {
	Direction Direction
	// Symbol in canonical BASEQUOTE form, e.g. BTCUSDT.
	Symbol    string
	OrderType OrderType
	// EntryPrice is set at parse time for LIMIT orders only.
	EntryPrice *decimal.Decimal
	// TakeProfit and StopLoss use zero as the "not set" sentinel.
	TakeProfit  decimal.Decimal
	StopLoss    decimal.Decimal
	Leverage    int
	RiskPercent decimal.Decimal
}

// Valid reports whether the mandatory fields are resolved.
// All other fields have defaults and never block validity.
func (s *TradingSignal) Valid() bool {
	return s != nil && s.Direction != DirectionNone && s.Symbol != ""
}

// ExecutionPlan carries the values resolved at execution time for a parsed
// signal: the final entry price and the computed position size.
type ExecutionPlan struct {
	Signal     *TradingSignal
	EntryPrice decimal.Decimal
	RiskAmount decimal.Decimal
	Qty        decimal.Decimal
}
