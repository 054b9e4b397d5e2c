// Package executor sizes parsed signals and dispatches them to the venue.
package executor

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/signalbot/internal/domain"
	"go.uber.org/zap"
)

// quoteCoin is the only wallet currency consumed for sizing.
const quoteCoin = "USDT"

// timeInForceGTC keeps orders on the book until cancelled.
const timeInForceGTC = "GTC"

// Venue is the external exchange. All calls block and may fail; the
// executor treats every failure as terminal for the current attempt.
type Venue interface {
	AccountBalance(ctx context.Context) (domain.AccountSnapshot, error)
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SubmitOrder(ctx context.Context, req *domain.OrderRequest) (string, error)
}

// Executor runs the per-order pipeline: set leverage, check balance,
// resolve price, compute quantity, submit. Steps are strictly sequential
// and never retried; any failure short-circuits the attempt.
type Executor struct {
	venue  Venue
	logger *zap.Logger
}

// New creates an executor over the given venue.
func New(venue Venue, logger *zap.Logger) *Executor {
	return &Executor{venue: venue, logger: logger}
}

// PlaceOrder submits an order for the signal using the caller's leverage and
// risk settings. The returned result carries the venue order id, the exact
// request sent, and the resolved execution plan for display and audit.
func (e *Executor) PlaceOrder(ctx context.Context, signal *domain.TradingSignal, leverage int, riskPercent decimal.Decimal) (*domain.OrderResult, error) {
	if !signal.Valid() {
		return nil, errors.New("signal is missing direction or symbol")
	}

	// Leverage application is idempotent and non-fatal: the venue rejects
	// repeats of the current value, so the attempt continues either way.
	if err := e.venue.SetLeverage(ctx, signal.Symbol, leverage); err != nil {
		e.logger.Warn("failed to set leverage",
			zap.String("symbol", signal.Symbol),
			zap.Int("leverage", leverage),
			zap.Error(err))
	}

	snapshot, err := e.venue.AccountBalance(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch wallet balance")
	}
	if len(snapshot) == 0 {
		return nil, errors.New("wallet balance unavailable")
	}

	balance := snapshot.Balance(quoteCoin)
	if balance.IsZero() {
		return nil, errors.Errorf("no %s balance found", quoteCoin)
	}

	entryPrice, err := e.resolveEntryPrice(ctx, signal)
	if err != nil {
		return nil, err
	}

	riskAmount, qty := domain.NewRiskBudget(riskPercent).Allocate(balance, entryPrice, leverage)
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("computed order quantity is zero")
	}

	req := &domain.OrderRequest{
		Category:    domain.CategoryLinear,
		Symbol:      signal.Symbol,
		Side:        signal.Direction.Side(),
		OrderType:   signal.OrderType,
		Qty:         qty,
		TimeInForce: timeInForceGTC,
		OrderLinkID: uuid.New().String(),
	}
	if signal.OrderType == domain.OrderTypeLimit {
		price := entryPrice
		req.Price = &price
	}
	// Zero is the "not requested" sentinel and is never sent to the venue.
	if signal.TakeProfit.IsPositive() {
		tp := signal.TakeProfit
		req.TakeProfit = &tp
	}
	if signal.StopLoss.IsPositive() {
		sl := signal.StopLoss
		req.StopLoss = &sl
	}

	orderID, err := e.venue.SubmitOrder(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "submit order")
	}

	e.logger.Info("order accepted",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("qty", qty.String()),
		zap.String("order_id", orderID))

	return &domain.OrderResult{
		OrderID: orderID,
		Request: req,
		Plan: domain.ExecutionPlan{
			Signal:     signal,
			EntryPrice: entryPrice,
			RiskAmount: riskAmount,
			Qty:        qty,
		},
	}, nil
}

// QuoteBalance returns the quote-currency wallet balance. Used for
// credential validation and balance reports.
func (e *Executor) QuoteBalance(ctx context.Context) (decimal.Decimal, error) {
	snapshot, err := e.venue.AccountBalance(ctx)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "fetch wallet balance")
	}
	if len(snapshot) == 0 {
		return decimal.Decimal{}, errors.New("wallet balance unavailable")
	}
	return snapshot.Balance(quoteCoin), nil
}

// resolveEntryPrice picks the sizing price: live market price for MARKET
// orders, the parsed entry price for LIMIT orders.
func (e *Executor) resolveEntryPrice(ctx context.Context, signal *domain.TradingSignal) (decimal.Decimal, error) {
	if signal.OrderType == domain.OrderTypeMarket {
		price, err := e.venue.LastPrice(ctx, signal.Symbol)
		if err != nil {
			return decimal.Decimal{}, errors.Wrap(err, "fetch last price")
		}
		return price, nil
	}

	if signal.EntryPrice == nil {
		return decimal.Decimal{}, errors.New("limit order without entry price")
	}
	return *signal.EntryPrice, nil
}
