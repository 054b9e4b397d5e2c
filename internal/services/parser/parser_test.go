package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/signalbot/internal/domain"
)

func newTestParser() *Parser {
	return New(10, decimal.NewFromFloat(5.0))
}

func TestParseFullSignal(t *testing.T) {
	p := newTestParser()

	signal, err := p.Parse("LONG\nBTC/USDT\nLEVERAGE: 20X\nTP: 52000\nSL: 48000\nUSE 3% OF CAPITAL")
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionLong, signal.Direction)
	assert.Equal(t, "BTCUSDT", signal.Symbol)
	assert.Equal(t, domain.OrderTypeMarket, signal.OrderType)
	assert.Nil(t, signal.EntryPrice)
	assert.Equal(t, 20, signal.Leverage)
	assert.True(t, signal.TakeProfit.Equal(decimal.NewFromInt(52000)))
	assert.True(t, signal.StopLoss.Equal(decimal.NewFromInt(48000)))
	assert.True(t, signal.RiskPercent.Equal(decimal.NewFromInt(3)))
}

func TestParseMandatoryFields(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"no direction", "BTC/USDT\nTP: 52000", ErrNoDirection},
		{"no symbol", "LONG\nTP: 52000", ErrNoSymbol},
		{"plain chatter", "gm everyone, market looks great today", ErrNoDirection},
		{"symbol without quote pair", "SHORT BTC now!", ErrNoSymbol},
		{"empty text", "", ErrNoDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, err := p.Parse(tt.text)
			assert.Nil(t, signal)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseLimitOrder(t *testing.T) {
	p := newTestParser()

	signal, err := p.Parse("SHORT\nETH/USDT\nLIMIT ORDER 45000.5")
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionShort, signal.Direction)
	assert.Equal(t, "ETHUSDT", signal.Symbol)
	assert.Equal(t, domain.OrderTypeLimit, signal.OrderType)
	require.NotNil(t, signal.EntryPrice)
	assert.True(t, signal.EntryPrice.Equal(decimal.NewFromFloat(45000.5)))
}

func TestParseLimitOrderWithoutPrice(t *testing.T) {
	p := newTestParser()

	// order type sticks even when the price is missing; the executor
	// rejects the plan later
	signal, err := p.Parse("LONG\nBTC/USDT\nLIMIT ORDER soon")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderTypeLimit, signal.OrderType)
	assert.Nil(t, signal.EntryPrice)
}

func TestParseDefaults(t *testing.T) {
	p := newTestParser()

	signal, err := p.Parse("long btc/usdt")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderTypeMarket, signal.OrderType)
	assert.Nil(t, signal.EntryPrice)
	assert.Equal(t, 10, signal.Leverage)
	assert.True(t, signal.TakeProfit.IsZero())
	assert.True(t, signal.StopLoss.IsZero())
	assert.True(t, signal.RiskPercent.Equal(decimal.NewFromFloat(5.0)))
}

func TestParseFirstMatchWins(t *testing.T) {
	p := newTestParser()

	signal, err := p.Parse("SHORT then maybe LONG\nBTC/USDT and also ETH/USDT\nTP: 100\nTP: 200")
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionShort, signal.Direction)
	assert.Equal(t, "BTCUSDT", signal.Symbol)
	assert.True(t, signal.TakeProfit.Equal(decimal.NewFromInt(100)))
}

func TestParseFieldsInAnyOrder(t *testing.T) {
	p := newTestParser()

	signal, err := p.Parse("USE 2% OF CAPITAL\nsl: 900\nsome commentary here\n1000SATS/USDT\ntp: 1100\nshort\nleverage: 7")
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionShort, signal.Direction)
	assert.Equal(t, "1000SATSUSDT", signal.Symbol)
	assert.Equal(t, 7, signal.Leverage)
	assert.True(t, signal.TakeProfit.Equal(decimal.NewFromInt(1100)))
	assert.True(t, signal.StopLoss.Equal(decimal.NewFromInt(900)))
	assert.True(t, signal.RiskPercent.Equal(decimal.NewFromInt(2)))
}

func TestParseMalformedOptionalFallsBack(t *testing.T) {
	p := newTestParser()

	// a numeric token with two dots fails decimal parsing; the field keeps
	// its default instead of aborting the parse
	signal, err := p.Parse("LONG\nBTC/USDT\nTP: 52.000.5")
	require.NoError(t, err)
	assert.True(t, signal.TakeProfit.IsZero())
}

func TestParseIdempotent(t *testing.T) {
	p := newTestParser()
	text := "LONG\nBTC/USDT\nLEVERAGE: 20X\nTP: 52000\nSL: 48000\nUSE 3% OF CAPITAL"

	first, err := p.Parse(text)
	require.NoError(t, err)
	second, err := p.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
