package domain

import "github.com/shopspring/decimal"

// qtyPrecision is the fixed number of decimal places for order quantities.
// No per-symbol tick-size lookup is performed.
const qtyPrecision = 6

// RiskBudget sizes positions by capital allocation: the trader commits a
// percentage of available balance, multiplied by leverage. The stop-loss
// distance deliberately does not participate in the formula.
type RiskBudget struct {
	percent decimal.Decimal
}

// NewRiskBudget returns a risk budget for the given percent of capital.
func NewRiskBudget(percent decimal.Decimal) RiskBudget {
	return RiskBudget{percent: percent}
}

// Allocate calculates the capital at risk and the base asset quantity
// at the given entry price. Quantity is rounded to 6 decimal places.
func (r RiskBudget) Allocate(balance, price decimal.Decimal, leverage int) (riskAmount, qty decimal.Decimal) {
	if r.percent.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}
	if price.LessThanOrEqual(decimal.Zero) || leverage <= 0 {
		return decimal.Zero, decimal.Zero
	}

	riskAmount = balance.Mul(r.percent.Div(decimal.NewFromInt(100)))
	if riskAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}

	qty = riskAmount.Mul(decimal.NewFromInt(int64(leverage))).Div(price).Round(qtyPrecision)
	return riskAmount, qty
}
