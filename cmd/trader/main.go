package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ratio-jump-trader/internal/config"
	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/logger"
	"ratio-jump-trader/internal/notify"
	"ratio-jump-trader/internal/store"
	"ratio-jump-trader/internal/supervisor"
	"ratio-jump-trader/internal/trader"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	notifier, err := notify.NewWorker(cfg.Notify.Name, cfg.Notify.URLs)
	if err != nil {
		panic(fmt.Sprintf("could not build notification worker: %v", err))
	}
	defer notifier.Close()

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format, notifier)
	if err != nil {
		panic(fmt.Sprintf("could not build logger: %v", err))
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.CreateSchema(); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	if err := db.SetSupportedCoins(cfg.Trading.SupportedCoinList); err != nil {
		log.Fatal("Failed to sync supported coin list", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	adapter := exchange.NewRestClient(&cfg.Exchange, log)
	if err := adapter.GetAccount(); err != nil {
		log.Fatal("Failed to authenticate with exchange API", zap.Error(err))
	}
	log.Info("Successfully connected to exchange API.")

	strategy, err := trader.NewStrategy(cfg.Trading.Strategy)
	if err != nil {
		log.Fatal("Invalid strategy specified in config", zap.String("strategy", cfg.Trading.Strategy), zap.Error(err))
	}
	log.Info("Using strategy", zap.String("strategy", strategy.Name()))

	engine := trader.New(db, adapter, log, cfg.Trading, strategy)
	if err := engine.Initialize(); err != nil {
		log.Fatal("Strategy initialization failed", zap.Error(err))
	}

	sup, err := supervisor.New(log)
	if err != nil {
		log.Fatal("Failed to build job supervisor", zap.Error(err))
	}
	if err := supervisor.ScheduleTradingJobs(sup, engine, db, log, cfg.Trading); err != nil {
		log.Fatal("Failed to schedule trading jobs", zap.Error(err))
	}
	sup.Start()
	log.Info("Trading engine started", zap.String("engine_id", engine.UUID))

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		log.Warn("Supervisor did not shut down cleanly", zap.Error(err))
	}

	if err := adapter.Close(); err != nil {
		log.Warn("Error closing exchange adapter", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
