package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ratio-jump-trader/internal/config"
	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/logger"
	"ratio-jump-trader/internal/store"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.CreateSchema(); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	mux := http.NewServeMux()
	apiHandler := NewAPIHandler(log, db, cfg.Server.TraderURLs)

	mux.HandleFunc("/api/trades", apiHandler.TradesHandler)
	mux.HandleFunc("/api/scout-history", apiHandler.ScoutHistoryHandler)
	mux.HandleFunc("/api/value-history", apiHandler.ValueHistoryHandler)
	mux.HandleFunc("/api/progress", apiHandler.ProgressHandler)
	mux.HandleFunc("/api/traders", apiHandler.TradersHandler)
	mux.HandleFunc("/health", apiHandler.HealthHandler)

	if cfg.Server.EnableAPI {
		mux.Handle("/metrics", promhttp.HandlerFor(exchange.Registry, promhttp.HandlerOpts{}))
	}

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/templates/index.html")
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting inspection dashboard", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
