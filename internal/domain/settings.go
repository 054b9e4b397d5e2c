package domain

import "github.com/shopspring/decimal"

// UserSettings holds per-user trading configuration and venue credentials.
// Reads and writes go through the settings store with last-writer-wins
// semantics; no atomicity across read-then-write is assumed.
type UserSettings struct {
	UserID      int64           `json:"user_id"`
	APIKey      string          `json:"api_key"`
	APISecret   string          `json:"api_secret"`
	Leverage    int             `json:"leverage"`
	RiskPercent decimal.Decimal `json:"risk_percent"`
	AutoTrade   bool            `json:"auto_trade"`
}

// Clamp caps leverage and risk at the configured maximums.
func (s *UserSettings) Clamp(maxLeverage int, maxRisk decimal.Decimal) {
	if maxLeverage > 0 && s.Leverage > maxLeverage {
		s.Leverage = maxLeverage
	}
	if maxRisk.GreaterThan(decimal.Zero) && s.RiskPercent.GreaterThan(maxRisk) {
		s.RiskPercent = maxRisk
	}
}
