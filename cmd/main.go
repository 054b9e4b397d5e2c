// Command signalbot runs the Telegram trading signal relay for Bybit
// USDT-perpetual futures. It parses free-text signals from chat messages,
// sizes them against each user's balance and risk settings, and submits
// the resulting orders.
//
// Usage:
//
//	signalbot --config config.yaml
//	signalbot --setup        (interactive configuration wizard)
//
// Required environment variables:
//
//	TELEGRAM_BOT_TOKEN
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vadiminshakov/signalbot/config"
	"github.com/vadiminshakov/signalbot/internal/clients"
	"github.com/vadiminshakov/signalbot/internal/events"
	"github.com/vadiminshakov/signalbot/internal/services/bot"
	"github.com/vadiminshakov/signalbot/internal/services/executor"
	"github.com/vadiminshakov/signalbot/internal/services/parser"
	"github.com/vadiminshakov/signalbot/internal/services/venue"
	"github.com/vadiminshakov/signalbot/internal/setup"
	"github.com/vadiminshakov/signalbot/internal/storage/orders"
	"github.com/vadiminshakov/signalbot/internal/storage/usersettings"
	"github.com/vadiminshakov/signalbot/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	runSetup := flag.Bool("setup", false, "run the interactive configuration wizard")
	flag.Parse()

	if *runSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable must be set")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settingsStore, err := usersettings.NewStore(filepath.Join(cfg.WalDir, "usersettings"))
	if err != nil {
		logger.Fatal("failed to open settings store", zap.Error(err))
	}
	defer settingsStore.Close()

	journal, err := orders.NewJournal(filepath.Join(cfg.WalDir, "orders"))
	if err != nil {
		logger.Fatal("failed to open order journal", zap.Error(err))
	}
	defer journal.Close()

	broadcaster := events.NewOrderBroadcaster(256)

	// persist every order attempt for audit and the dashboard
	journalSub := broadcaster.Subscribe()
	go func() {
		for event := range journalSub {
			if err := journal.Append(event); err != nil {
				logger.Error("failed to journal order event", zap.Error(err))
			}
		}
	}()
	defer broadcaster.Unsubscribe(journalSub)

	go func() {
		srv := web.NewServer(cfg.ListenAddr, journal)
		if err := srv.Start(ctx); err != nil {
			logger.Error("dashboard server stopped", zap.Error(err))
		}
	}()

	traderFor := func(apiKey, apiSecret string) bot.Trader {
		client := clients.NewBybitClient(apiKey, apiSecret, cfg.Testnet)
		return executor.New(venue.NewBybit(client), logger)
	}

	b := bot.New(
		clients.NewTelegramClient(token),
		settingsStore,
		parser.New(cfg.DefaultLeverage, cfg.DefaultRisk),
		traderFor,
		broadcaster,
		bot.Limits{
			DefaultLeverage: cfg.DefaultLeverage,
			DefaultRisk:     cfg.DefaultRisk,
			MaxLeverage:     cfg.MaxLeverage,
			MaxRisk:         cfg.MaxRisk,
		},
		cfg.PollTimeout,
		logger,
	)

	if err := b.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("bot stopped", zap.Error(err))
	}
}
