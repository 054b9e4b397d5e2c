// Package parser extracts structured trading signals from free-text messages.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/signalbot/internal/domain"
)

// Sentinel errors for texts that are not recognizable signals.
// Callers are expected to treat any parse error as "not a signal".
var (
	ErrNoDirection = errors.New("no direction keyword found")
	ErrNoSymbol    = errors.New("no symbol found")
)

// Field extractors operate on the uppercased text and are matched
// independently, in any order. First match wins, later occurrences
// and unrecognized lines are ignored.
var (
	directionRe = regexp.MustCompile(`(LONG|SHORT)`)
	symbolRe    = regexp.MustCompile(`([A-Z0-9]+)/USDT`)
	limitRe     = regexp.MustCompile(`LIMIT ORDER\s+([\d.]+)`)
	leverageRe  = regexp.MustCompile(`LEVERAGE:\s*(\d+)X?`)
	tpRe        = regexp.MustCompile(`TP:\s*([\d.]+)`)
	slRe        = regexp.MustCompile(`SL:\s*([\d.]+)`)
	riskRe      = regexp.MustCompile(`USE\s+(\d+)%\s+OF\s+CAPITAL`)
)

// quoteCoin is the quote asset every parsed symbol is paired against.
const quoteCoin = "USDT"

// Parser converts raw message text into trading signals.
type Parser struct {
	defaultLeverage int
	defaultRisk     decimal.Decimal
}

// New creates a parser with the defaults applied to optional fields.
func New(defaultLeverage int, defaultRisk decimal.Decimal) *Parser {
	return &Parser{defaultLeverage: defaultLeverage, defaultRisk: defaultRisk}
}

// Parse extracts a trading signal from message text.
//
// Expected format (lines in any order, case-insensitive, extra lines ignored):
//
//	LONG            (or SHORT)
//	<SYMBOL>/USDT
//	LIMIT ORDER <price>     (omit for MARKET)
//	LEVERAGE: <int>[X]
//	TP: <decimal>
//	SL: <decimal>
//	USE <int>% OF CAPITAL
//
// Direction and symbol are mandatory; their absence makes the text not a
// signal. Malformed optional values fall back to defaults.
func (p *Parser) Parse(text string) (*domain.TradingSignal, error) {
	text = strings.ToUpper(strings.TrimSpace(text))

	signal := &domain.TradingSignal{
		OrderType:   domain.OrderTypeMarket,
		Leverage:    p.defaultLeverage,
		RiskPercent: p.defaultRisk,
	}

	match := directionRe.FindStringSubmatch(text)
	if match == nil {
		return nil, ErrNoDirection
	}
	if match[1] == "LONG" {
		signal.Direction = domain.DirectionLong
	} else {
		signal.Direction = domain.DirectionShort
	}

	match = symbolRe.FindStringSubmatch(text)
	if match == nil {
		return nil, ErrNoSymbol
	}
	signal.Symbol = match[1] + quoteCoin

	if strings.Contains(text, "LIMIT ORDER") {
		signal.OrderType = domain.OrderTypeLimit
		if match = limitRe.FindStringSubmatch(text); match != nil {
			if price, err := decimal.NewFromString(match[1]); err == nil && price.IsPositive() {
				signal.EntryPrice = &price
			}
		}
	}

	if match = leverageRe.FindStringSubmatch(text); match != nil {
		if leverage, err := strconv.Atoi(match[1]); err == nil && leverage > 0 {
			signal.Leverage = leverage
		}
	}

	if match = tpRe.FindStringSubmatch(text); match != nil {
		if tp, err := decimal.NewFromString(match[1]); err == nil {
			signal.TakeProfit = tp
		}
	}

	if match = slRe.FindStringSubmatch(text); match != nil {
		if sl, err := decimal.NewFromString(match[1]); err == nil {
			signal.StopLoss = sl
		}
	}

	if match = riskRe.FindStringSubmatch(text); match != nil {
		if risk, err := decimal.NewFromString(match[1]); err == nil && risk.IsPositive() {
			signal.RiskPercent = risk
		}
	}

	return signal, nil
}
