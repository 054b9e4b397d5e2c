// Package venue adapts the Bybit v5 API to the executor's venue contract.
package venue

import (
	"context"
	"strconv"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/signalbot/internal/domain"
)

// Bybit talks to Bybit USDT-perpetual (linear) futures.
type Bybit struct {
	client *bybit.Client
}

// NewBybit creates a venue adapter over an authenticated client.
func NewBybit(client *bybit.Client) *Bybit {
	return &Bybit{client: client}
}

// AccountBalance reads the unified account wallet and returns a snapshot
// of per-coin balances. Coins with unparseable balances are skipped.
func (b *Bybit) AccountBalance(ctx context.Context) (domain.AccountSnapshot, error) {
	res, err := b.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return nil, errors.Wrap(err, "get wallet balance")
	}

	snapshot := make(domain.AccountSnapshot)
	if len(res.Result.List) == 0 {
		return snapshot, nil
	}
	for _, coin := range res.Result.List[0].Coin {
		balance, err := decimal.NewFromString(coin.WalletBalance)
		if err != nil {
			continue
		}
		snapshot[string(coin.Coin)] = balance
	}

	return snapshot, nil
}

// LastPrice returns the last traded price for the symbol.
func (b *Bybit) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym := bybit.SymbolV5(symbol)
	res, err := b.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: domain.CategoryLinear,
		Symbol:   &sym,
	})
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "get tickers")
	}

	if res.Result.LinearInverse == nil || len(res.Result.LinearInverse.List) == 0 {
		return decimal.Decimal{}, errors.Errorf("bybit API returned empty prices for %s", symbol)
	}

	return decimal.NewFromString(res.Result.LinearInverse.List[0].LastPrice)
}

// SetLeverage applies the leverage to both sides of the instrument.
func (b *Bybit) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	lev := strconv.Itoa(leverage)
	_, err := b.client.V5().Position().SetLeverage(bybit.V5SetLeverageParam{
		Category:     domain.CategoryLinear,
		Symbol:       bybit.SymbolV5(symbol),
		BuyLeverage:  lev,
		SellLeverage: lev,
	})
	if err != nil {
		return errors.Wrap(err, "set leverage")
	}
	return nil
}

// SubmitOrder sends the order and returns the venue order id.
// Nil price/TP/SL fields are omitted from the request entirely.
func (b *Bybit) SubmitOrder(ctx context.Context, req *domain.OrderRequest) (string, error) {
	orderType := bybit.OrderTypeMarket
	if req.OrderType == domain.OrderTypeLimit {
		orderType = bybit.OrderTypeLimit
	}

	param := bybit.V5CreateOrderParam{
		Category:  bybit.CategoryV5(req.Category),
		Symbol:    bybit.SymbolV5(req.Symbol),
		Side:      bybit.Side(req.Side),
		OrderType: orderType,
		Qty:       req.Qty.String(),
	}
	if req.TimeInForce != "" {
		tif := bybit.TimeInForce(req.TimeInForce)
		param.TimeInForce = &tif
	}
	if req.OrderLinkID != "" {
		linkID := req.OrderLinkID
		param.OrderLinkID = &linkID
	}
	if req.Price != nil {
		price := req.Price.String()
		param.Price = &price
	}
	if req.TakeProfit != nil {
		tp := req.TakeProfit.String()
		param.TakeProfit = &tp
	}
	if req.StopLoss != nil {
		sl := req.StopLoss.String()
		param.StopLoss = &sl
	}

	res, err := b.client.V5().Order().CreateOrder(param)
	if err != nil {
		return "", errors.Wrap(err, "create order")
	}

	return res.Result.OrderID, nil
}
