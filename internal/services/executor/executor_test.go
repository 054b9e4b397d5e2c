package executor

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/signalbot/internal/domain"
	"go.uber.org/zap"
)

type fakeVenue struct {
	snapshot    domain.AccountSnapshot
	balanceErr  error
	lastPrice   decimal.Decimal
	priceErr    error
	leverageErr error
	submitErr   error

	priceCalls    int
	leverageCalls int
	submitCalls   int
	submitted     *domain.OrderRequest
	leverageSet   int
}

func (f *fakeVenue) AccountBalance(ctx context.Context) (domain.AccountSnapshot, error) {
	return f.snapshot, f.balanceErr
}

func (f *fakeVenue) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.priceCalls++
	return f.lastPrice, f.priceErr
}

func (f *fakeVenue) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	f.leverageCalls++
	f.leverageSet = leverage
	return f.leverageErr
}

func (f *fakeVenue) SubmitOrder(ctx context.Context, req *domain.OrderRequest) (string, error) {
	f.submitCalls++
	f.submitted = req
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "order-123", nil
}

func marketSignal() *domain.TradingSignal {
	return &domain.TradingSignal{
		Direction: domain.DirectionLong,
		Symbol:    "BTCUSDT",
		OrderType: domain.OrderTypeMarket,
	}
}

func TestPlaceOrderMarketSizing(t *testing.T) {
	venue := &fakeVenue{
		snapshot:  domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)},
		lastPrice: decimal.NewFromInt(50000),
	}
	e := New(venue, zap.NewNop())

	result, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
	require.NoError(t, err)

	// riskAmount = 1000 * 5% = 50, qty = 50*10/50000 = 0.01
	assert.True(t, result.Plan.RiskAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.Plan.Qty.Equal(decimal.NewFromFloat(0.01)))
	assert.True(t, result.Plan.EntryPrice.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "order-123", result.OrderID)
	assert.Equal(t, 10, venue.leverageSet)
	assert.Equal(t, 1, venue.priceCalls)

	req := result.Request
	assert.Equal(t, domain.CategoryLinear, req.Category)
	assert.Equal(t, domain.SideBuy, req.Side)
	assert.Equal(t, "GTC", req.TimeInForce)
	assert.Nil(t, req.Price)
	assert.NotEmpty(t, req.OrderLinkID)
}

func TestPlaceOrderLimitUsesParsedPrice(t *testing.T) {
	entry := decimal.NewFromFloat(45000.5)
	signal := &domain.TradingSignal{
		Direction:  domain.DirectionShort,
		Symbol:     "ETHUSDT",
		OrderType:  domain.OrderTypeLimit,
		EntryPrice: &entry,
	}
	venue := &fakeVenue{snapshot: domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)}}
	e := New(venue, zap.NewNop())

	result, err := e.PlaceOrder(context.Background(), signal, 10, decimal.NewFromInt(5))
	require.NoError(t, err)

	assert.Zero(t, venue.priceCalls, "limit orders must not query the market price")
	assert.True(t, result.Plan.EntryPrice.Equal(entry))
	assert.Equal(t, domain.SideSell, result.Request.Side)
	require.NotNil(t, result.Request.Price)
	assert.True(t, result.Request.Price.Equal(entry))
}

func TestPlaceOrderLimitWithoutPrice(t *testing.T) {
	signal := &domain.TradingSignal{
		Direction: domain.DirectionLong,
		Symbol:    "BTCUSDT",
		OrderType: domain.OrderTypeLimit,
	}
	venue := &fakeVenue{snapshot: domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)}}
	e := New(venue, zap.NewNop())

	_, err := e.PlaceOrder(context.Background(), signal, 10, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry price")
	assert.Zero(t, venue.submitCalls)
}

func TestPlaceOrderZeroBalance(t *testing.T) {
	venue := &fakeVenue{
		snapshot:  domain.AccountSnapshot{"USDT": decimal.Zero, "BTC": decimal.NewFromInt(1)},
		lastPrice: decimal.NewFromInt(50000),
	}
	e := New(venue, zap.NewNop())

	_, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no USDT balance")
	assert.Zero(t, venue.submitCalls, "no submit call may happen without balance")
}

func TestPlaceOrderBalanceUnavailable(t *testing.T) {
	t.Run("empty snapshot", func(t *testing.T) {
		venue := &fakeVenue{snapshot: domain.AccountSnapshot{}}
		e := New(venue, zap.NewNop())

		_, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "balance unavailable")
		assert.Zero(t, venue.submitCalls)
	})

	t.Run("venue error", func(t *testing.T) {
		venue := &fakeVenue{balanceErr: errors.New("api down")}
		e := New(venue, zap.NewNop())

		_, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
		require.Error(t, err)
		assert.Zero(t, venue.submitCalls)
	})
}

func TestPlaceOrderLeverageFailureIsNonFatal(t *testing.T) {
	venue := &fakeVenue{
		snapshot:    domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)},
		lastPrice:   decimal.NewFromInt(50000),
		leverageErr: errors.New("leverage not modified"),
	}
	e := New(venue, zap.NewNop())

	result, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "order-123", result.OrderID)
}

func TestPlaceOrderPriceFailureAborts(t *testing.T) {
	venue := &fakeVenue{
		snapshot: domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)},
		priceErr: errors.New("ticker unavailable"),
	}
	e := New(venue, zap.NewNop())

	_, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Zero(t, venue.submitCalls)
}

func TestPlaceOrderTPSLOmittedWhenZero(t *testing.T) {
	venue := &fakeVenue{
		snapshot:  domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)},
		lastPrice: decimal.NewFromInt(50000),
	}
	e := New(venue, zap.NewNop())

	result, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
	require.NoError(t, err)

	assert.Nil(t, result.Request.TakeProfit)
	assert.Nil(t, result.Request.StopLoss)
}

func TestPlaceOrderTPSLIncludedWhenSet(t *testing.T) {
	signal := marketSignal()
	signal.TakeProfit = decimal.NewFromInt(52000)
	signal.StopLoss = decimal.NewFromInt(48000)

	venue := &fakeVenue{
		snapshot:  domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)},
		lastPrice: decimal.NewFromInt(50000),
	}
	e := New(venue, zap.NewNop())

	result, err := e.PlaceOrder(context.Background(), signal, 10, decimal.NewFromInt(5))
	require.NoError(t, err)

	require.NotNil(t, result.Request.TakeProfit)
	assert.True(t, result.Request.TakeProfit.Equal(decimal.NewFromInt(52000)))
	require.NotNil(t, result.Request.StopLoss)
	assert.True(t, result.Request.StopLoss.Equal(decimal.NewFromInt(48000)))
}

func TestPlaceOrderSubmitRejected(t *testing.T) {
	venue := &fakeVenue{
		snapshot:  domain.AccountSnapshot{"USDT": decimal.NewFromInt(1000)},
		lastPrice: decimal.NewFromInt(50000),
		submitErr: errors.New("10001: parameter error"),
	}
	e := New(venue, zap.NewNop())

	result, err := e.PlaceOrder(context.Background(), marketSignal(), 10, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "parameter error")
}

func TestPlaceOrderInvalidSignal(t *testing.T) {
	venue := &fakeVenue{}
	e := New(venue, zap.NewNop())

	_, err := e.PlaceOrder(context.Background(), &domain.TradingSignal{}, 10, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Zero(t, venue.leverageCalls)
}

func TestQuoteBalance(t *testing.T) {
	venue := &fakeVenue{snapshot: domain.AccountSnapshot{"USDT": decimal.NewFromFloat(123.45)}}
	e := New(venue, zap.NewNop())

	balance, err := e.QuoteBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromFloat(123.45)))
}
