package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/platform/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logConfig := logger.DefaultConfig()
	logConfig.Level = logger.ParseLevel(cfg.Server.LogLevel)
	if cfg.Server.LogFormat != "" {
		logConfig.Format = cfg.Server.LogFormat
	}
	log := logger.New(logConfig)

	log.Info("starting PriceLens backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"cache_enabled", cfg.Cache.Enabled,
		"cache_ttl", cfg.Cache.TTL)

	application, err := app.Build(cfg, log)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	for _, source := range application.Sources {
		log.Info("listing source ready", "source", source.Name())
	}

	log.Info("ranking configured",
		"weight_relevance", cfg.Ranking.WeightRelevance,
		"weight_price", cfg.Ranking.WeightPrice,
		"weight_trust", cfg.Ranking.WeightTrust,
		"min_relevance", cfg.Search.MinRelevance,
		"debug", cfg.Matching.Debug)

	handler := httpDelivery.NewHandler(application.SearchService, log)
	router := httpDelivery.SetupRouter(cfg, handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
