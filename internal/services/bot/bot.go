// Package bot routes Telegram updates to the parsing and execution pipeline.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/signalbot/internal/clients"
	"github.com/vadiminshakov/signalbot/internal/domain"
	"github.com/vadiminshakov/signalbot/internal/events"
	"github.com/vadiminshakov/signalbot/pkg/retrier"
	"go.uber.org/zap"
)

const venueCallTimeout = 30 * time.Second

// ChatClient is the Telegram transport surface the bot consumes.
type ChatClient interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]clients.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *clients.InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *clients.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Trader executes orders and reads balances for one user's credentials.
type Trader interface {
	PlaceOrder(ctx context.Context, signal *domain.TradingSignal, leverage int, riskPercent decimal.Decimal) (*domain.OrderResult, error)
	QuoteBalance(ctx context.Context) (decimal.Decimal, error)
}

// TraderFactory builds a trader from stored user credentials.
type TraderFactory func(apiKey, apiSecret string) Trader

// SignalParser turns free text into a trading signal or reports it is not one.
type SignalParser interface {
	Parse(text string) (*domain.TradingSignal, error)
}

// SettingsStore is the per-user configuration store, last-writer-wins.
type SettingsStore interface {
	Get(userID int64) (domain.UserSettings, bool)
	Put(settings domain.UserSettings) error
}

// Limits carries the configured defaults and caps for user settings.
type Limits struct {
	DefaultLeverage int
	DefaultRisk     decimal.Decimal
	MaxLeverage     int
	MaxRisk         decimal.Decimal
}

// Bot handles commands, signal confirmation round trips and settings menus.
// Each update is processed as one independent unit of work.
type Bot struct {
	chat        ChatClient
	store       SettingsStore
	parser      SignalParser
	traderFor   TraderFactory
	events      *events.OrderBroadcaster
	limits      Limits
	pollTimeout time.Duration
	retrier     *retrier.Retrier
	logger      *zap.Logger

	// pending caches the last confirmed-but-not-executed signal per chat
	// for the confirm/execute round trip.
	mu      sync.Mutex
	pending map[int64]*domain.TradingSignal

	offset int64
}

// New creates a bot over the given collaborators.
func New(chat ChatClient, store SettingsStore, parser SignalParser, traderFor TraderFactory,
	broadcaster *events.OrderBroadcaster, limits Limits, pollTimeout time.Duration, logger *zap.Logger) *Bot {
	return &Bot{
		chat:        chat,
		store:       store,
		parser:      parser,
		traderFor:   traderFor,
		events:      broadcaster,
		limits:      limits,
		pollTimeout: pollTimeout,
		retrier:     retrier.New(retrier.WithMaxRetries(3)),
		logger:      logger,
		pending:     make(map[int64]*domain.TradingSignal),
	}
}

// Run long-polls Telegram until the context is cancelled. Transport errors
// are retried with backoff; update handling itself is never retried.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("starting signal bot")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := retrier.DoWithData(b.retrier, ctx, func(ctx context.Context) ([]clients.Update, error) {
			return b.chat.GetUpdates(ctx, b.offset, b.pollTimeout)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Error("failed to poll telegram updates", zap.Error(err))
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= b.offset {
				b.offset = update.UpdateID + 1
			}
			// independent pipelines, no ordering guarantee across chats
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update clients.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *clients.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}

	b.handleSignalText(ctx, msg, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *clients.Message, text string) {
	fields := strings.Fields(text)
	command := strings.SplitN(fields[0], "@", 2)[0]

	switch command {
	case "/start":
		b.reply(ctx, msg.Chat.ID, startMessage)
	case "/setup":
		b.handleSetup(ctx, msg, fields[1:])
	case "/settings":
		b.handleSettings(ctx, msg)
	case "/balance":
		b.handleBalance(ctx, msg)
	case "/toggle":
		b.handleToggle(ctx, msg)
	}
}

const startMessage = `*Trading Signal Bot*

Welcome to the automated trading signal bot!

*Commands:*
/setup - Configure your Bybit API credentials
/settings - Adjust trading settings (leverage, risk)
/balance - Check account balance
/toggle - Enable/disable auto trading

*Setup Instructions:*
1. Use /setup to add your Bybit API credentials
2. Configure your risk and leverage settings
3. Enable auto trading with /toggle
4. Forward signals from your trading group

Only use API keys with futures trading permissions and consider using testnet first.`

func (b *Bot) handleSetup(ctx context.Context, msg *clients.Message, args []string) {
	if len(args) != 2 {
		b.reply(ctx, msg.Chat.ID, "Usage: /setup <api\\_key> <api\\_secret>\n\nSend this command in a private chat for security!")
		return
	}

	apiKey, apiSecret := args[0], args[1]

	// probe the credentials with a balance read before saving them
	probeCtx, cancel := context.WithTimeout(ctx, venueCallTimeout)
	defer cancel()
	if _, err := b.traderFor(apiKey, apiSecret).QuoteBalance(probeCtx); err != nil {
		b.logger.Warn("credential check failed", zap.Int64("user", msg.From.ID), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, "Invalid API credentials!")
		return
	}

	settings := domain.UserSettings{
		UserID:      msg.From.ID,
		APIKey:      apiKey,
		APISecret:   apiSecret,
		Leverage:    b.limits.DefaultLeverage,
		RiskPercent: b.limits.DefaultRisk,
	}
	if err := b.store.Put(settings); err != nil {
		b.logger.Error("failed to save user settings", zap.Int64("user", msg.From.ID), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, "Could not save credentials, try again later.")
		return
	}

	b.reply(ctx, msg.Chat.ID, "API credentials saved successfully!\nUse /settings to configure your trading parameters.")
}

func (b *Bot) handleSettings(ctx context.Context, msg *clients.Message) {
	settings, ok := b.store.Get(msg.From.ID)
	if !ok {
		b.reply(ctx, msg.Chat.ID, setupFirstMessage)
		return
	}

	if err := b.chat.SendMessage(ctx, msg.Chat.ID, "*Trading Settings*", settingsKeyboard(settings)); err != nil {
		b.logger.Error("failed to send settings menu", zap.Error(err))
	}
}

func (b *Bot) handleBalance(ctx context.Context, msg *clients.Message) {
	settings, ok := b.store.Get(msg.From.ID)
	if !ok {
		b.reply(ctx, msg.Chat.ID, setupFirstMessage)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, venueCallTimeout)
	defer cancel()
	balance, err := b.traderFor(settings.APIKey, settings.APISecret).QuoteBalance(callCtx)
	if err != nil {
		b.logger.Error("failed to fetch balance", zap.Int64("user", msg.From.ID), zap.Error(err))
		b.reply(ctx, msg.Chat.ID, "Could not fetch balance!")
		return
	}

	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("*Account Balance*\n\nUSDT: %s", balance.StringFixed(2)))
}

func (b *Bot) handleToggle(ctx context.Context, msg *clients.Message) {
	settings, ok := b.store.Get(msg.From.ID)
	if !ok {
		b.reply(ctx, msg.Chat.ID, setupFirstMessage)
		return
	}

	settings.AutoTrade = !settings.AutoTrade
	if err := b.store.Put(settings); err != nil {
		b.logger.Error("failed to toggle auto trade", zap.Int64("user", msg.From.ID), zap.Error(err))
		return
	}

	status := "OFF"
	if settings.AutoTrade {
		status = "ON"
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Auto trading is now *%s*", status))
}

const setupFirstMessage = "Please setup your API credentials with /setup first!"

// handleSignalText runs the parse half of the pipeline. Texts that are not
// signals are ignored silently; recognized signals get a confirmation card.
func (b *Bot) handleSignalText(ctx context.Context, msg *clients.Message, text string) {
	settings, ok := b.store.Get(msg.From.ID)
	if !ok || !settings.AutoTrade {
		return
	}

	signal, err := b.parser.Parse(text)
	if err != nil {
		// not a recognized signal
		b.logger.Debug("message is not a signal", zap.Int64("user", msg.From.ID), zap.Error(err))
		return
	}

	b.mu.Lock()
	b.pending[msg.Chat.ID] = signal
	b.mu.Unlock()

	keyboard := &clients.InlineKeyboardMarkup{InlineKeyboard: [][]clients.InlineKeyboardButton{
		{{Text: "Execute", CallbackData: "execute"}},
		{{Text: "Cancel", CallbackData: "cancel"}},
	}}
	if err := b.chat.SendMessage(ctx, msg.Chat.ID, signalCard(signal, settings), keyboard); err != nil {
		b.logger.Error("failed to send signal confirmation", zap.Error(err))
	}
}

func signalCard(signal *domain.TradingSignal, settings domain.UserSettings) string {
	var sb strings.Builder
	sb.WriteString("*Signal Detected*\n\n")
	fmt.Fprintf(&sb, "Direction: %s\n", signal.Direction)
	fmt.Fprintf(&sb, "Symbol: %s\n", signal.Symbol)
	fmt.Fprintf(&sb, "Type: %s\n", signal.OrderType)
	if signal.EntryPrice != nil {
		fmt.Fprintf(&sb, "Entry: %s\n", signal.EntryPrice)
	}
	fmt.Fprintf(&sb, "TP: %s\n", signal.TakeProfit)
	fmt.Fprintf(&sb, "SL: %s\n", signal.StopLoss)
	fmt.Fprintf(&sb, "Leverage: %dx\n", settings.Leverage)
	fmt.Fprintf(&sb, "Risk: %s%%\n", settings.RiskPercent)
	sb.WriteString("\nExecute trade?")
	return sb.String()
}

func (b *Bot) handleCallback(ctx context.Context, query *clients.CallbackQuery) {
	if err := b.chat.AnswerCallbackQuery(ctx, query.ID); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}
	if query.Message == nil {
		return
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	switch {
	case query.Data == "execute":
		b.executePending(ctx, query.From.ID, chatID, messageID)
	case query.Data == "cancel":
		b.mu.Lock()
		delete(b.pending, chatID)
		b.mu.Unlock()
		b.edit(ctx, chatID, messageID, "Trade cancelled", nil)
	case query.Data == "set_leverage":
		b.edit(ctx, chatID, messageID, "Select Leverage:", b.leverageKeyboard())
	case strings.HasPrefix(query.Data, "leverage_"):
		b.applyLeverage(ctx, query.From.ID, chatID, messageID, strings.TrimPrefix(query.Data, "leverage_"))
	case query.Data == "set_risk":
		b.edit(ctx, chatID, messageID, "Select Risk Percentage:", b.riskKeyboard())
	case strings.HasPrefix(query.Data, "risk_"):
		b.applyRisk(ctx, query.From.ID, chatID, messageID, strings.TrimPrefix(query.Data, "risk_"))
	case query.Data == "toggle_auto":
		b.applyAutoToggle(ctx, query.From.ID, chatID, messageID)
	case query.Data == "back_settings":
		if settings, ok := b.store.Get(query.From.ID); ok {
			b.edit(ctx, chatID, messageID, "*Trading Settings*", settingsKeyboard(settings))
		}
	}
}

// executePending runs the execution half of the pipeline for the cached
// signal. Any failure is reported explicitly, never retried.
func (b *Bot) executePending(ctx context.Context, userID, chatID, messageID int64) {
	b.mu.Lock()
	signal := b.pending[chatID]
	delete(b.pending, chatID)
	b.mu.Unlock()

	if signal == nil {
		b.edit(ctx, chatID, messageID, "Signal not found!", nil)
		return
	}

	settings, ok := b.store.Get(userID)
	if !ok {
		b.edit(ctx, chatID, messageID, setupFirstMessage, nil)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, venueCallTimeout)
	defer cancel()
	result, err := b.traderFor(settings.APIKey, settings.APISecret).
		PlaceOrder(callCtx, signal, settings.Leverage, settings.RiskPercent)

	event := domain.OrderEvent{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Symbol:    signal.Symbol,
		Side:      string(signal.Direction.Side()),
		OrderType: signal.OrderType.String(),
	}

	if err != nil {
		b.logger.Error("order attempt failed",
			zap.Int64("user", userID),
			zap.String("symbol", signal.Symbol),
			zap.Error(err))

		event.Status = domain.OrderStatusRejected
		event.Error = err.Error()
		b.events.Publish(event)

		b.edit(ctx, chatID, messageID, fmt.Sprintf("Trade failed: %s", err), nil)
		return
	}

	event.Status = domain.OrderStatusAccepted
	event.OrderID = result.OrderID
	event.OrderLinkID = result.Request.OrderLinkID
	event.Qty = result.Plan.Qty.String()
	event.Price = result.Plan.EntryPrice.String()
	b.events.Publish(event)

	b.edit(ctx, chatID, messageID, fmt.Sprintf(
		"*Trade Executed Successfully*\n\nOrder ID: %s\nSymbol: %s\nSide: %s\nQuantity: %s",
		result.OrderID, signal.Symbol, signal.Direction, result.Plan.Qty), nil)
}

func (b *Bot) applyLeverage(ctx context.Context, userID, chatID, messageID int64, raw string) {
	settings, ok := b.store.Get(userID)
	if !ok {
		return
	}

	leverage, err := strconv.Atoi(raw)
	if err != nil || leverage <= 0 {
		return
	}

	settings.Leverage = leverage
	settings.Clamp(b.limits.MaxLeverage, b.limits.MaxRisk)
	if err := b.store.Put(settings); err != nil {
		b.logger.Error("failed to update leverage", zap.Int64("user", userID), zap.Error(err))
		return
	}

	b.edit(ctx, chatID, messageID, fmt.Sprintf("Leverage set to %dx", settings.Leverage), nil)
}

func (b *Bot) applyRisk(ctx context.Context, userID, chatID, messageID int64, raw string) {
	settings, ok := b.store.Get(userID)
	if !ok {
		return
	}

	risk, err := decimal.NewFromString(raw)
	if err != nil || !risk.IsPositive() {
		return
	}

	settings.RiskPercent = risk
	settings.Clamp(b.limits.MaxLeverage, b.limits.MaxRisk)
	if err := b.store.Put(settings); err != nil {
		b.logger.Error("failed to update risk", zap.Int64("user", userID), zap.Error(err))
		return
	}

	b.edit(ctx, chatID, messageID, fmt.Sprintf("Risk set to %s%%", settings.RiskPercent), nil)
}

func (b *Bot) applyAutoToggle(ctx context.Context, userID, chatID, messageID int64) {
	settings, ok := b.store.Get(userID)
	if !ok {
		return
	}

	settings.AutoTrade = !settings.AutoTrade
	if err := b.store.Put(settings); err != nil {
		b.logger.Error("failed to toggle auto trade", zap.Int64("user", userID), zap.Error(err))
		return
	}

	b.edit(ctx, chatID, messageID, "*Trading Settings*", settingsKeyboard(settings))
}

var leverageOptions = []int{5, 10, 20, 25, 50}

func (b *Bot) leverageKeyboard() *clients.InlineKeyboardMarkup {
	var rows [][]clients.InlineKeyboardButton
	for _, lev := range leverageOptions {
		if b.limits.MaxLeverage > 0 && lev > b.limits.MaxLeverage {
			continue
		}
		rows = append(rows, []clients.InlineKeyboardButton{
			{Text: fmt.Sprintf("%dx", lev), CallbackData: fmt.Sprintf("leverage_%d", lev)},
		})
	}
	rows = append(rows, backRow())
	return &clients.InlineKeyboardMarkup{InlineKeyboard: rows}
}

var riskOptions = []int{1, 2, 5, 10}

func (b *Bot) riskKeyboard() *clients.InlineKeyboardMarkup {
	var rows [][]clients.InlineKeyboardButton
	for _, risk := range riskOptions {
		if b.limits.MaxRisk.IsPositive() && decimal.NewFromInt(int64(risk)).GreaterThan(b.limits.MaxRisk) {
			continue
		}
		rows = append(rows, []clients.InlineKeyboardButton{
			{Text: fmt.Sprintf("%d%%", risk), CallbackData: fmt.Sprintf("risk_%d", risk)},
		})
	}
	rows = append(rows, backRow())
	return &clients.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func backRow() []clients.InlineKeyboardButton {
	return []clients.InlineKeyboardButton{{Text: "Back", CallbackData: "back_settings"}}
}

func settingsKeyboard(settings domain.UserSettings) *clients.InlineKeyboardMarkup {
	auto := "OFF"
	if settings.AutoTrade {
		auto = "ON"
	}
	return &clients.InlineKeyboardMarkup{InlineKeyboard: [][]clients.InlineKeyboardButton{
		{{Text: fmt.Sprintf("Leverage: %dx", settings.Leverage), CallbackData: "set_leverage"}},
		{{Text: fmt.Sprintf("Risk: %s%%", settings.RiskPercent), CallbackData: "set_risk"}},
		{{Text: fmt.Sprintf("Auto Trade: %s", auto), CallbackData: "toggle_auto"}},
	}}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.chat.SendMessage(ctx, chatID, text, nil); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) edit(ctx context.Context, chatID, messageID int64, text string, keyboard *clients.InlineKeyboardMarkup) {
	if err := b.chat.EditMessageText(ctx, chatID, messageID, text, keyboard); err != nil {
		b.logger.Error("failed to edit message", zap.Int64("chat", chatID), zap.Error(err))
	}
}
