package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"wheeltracker/internal/api"
	"wheeltracker/internal/autowheel"
	"wheeltracker/internal/chains"
	"wheeltracker/internal/config"
	"wheeltracker/internal/ledger"
	"wheeltracker/internal/marketdata"
	"wheeltracker/internal/models"
	"wheeltracker/internal/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Environment.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.Environment.LogLevel, err)
	}
	logger.SetLevel(level)

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open chain store: %v", err)
	}

	led := ledger.NewMemoryLedger()
	if cfg.Ledger.Path != "" {
		led, err = ledger.LoadFile(cfg.Ledger.Path)
		if err != nil {
			log.Fatalf("Failed to load position ledger: %v", err)
		}
	} else {
		logger.Warn("No ledger path configured, starting with an empty position ledger")
	}

	var quotes marketdata.Provider
	if cfg.MarketData.Enabled {
		httpProvider := marketdata.NewHTTPProvider(
			cfg.MarketData.Endpoint,
			cfg.MarketData.APIKey,
			time.Duration(cfg.MarketData.TimeoutSeconds)*time.Second,
		)
		retrying := marketdata.NewRetryProvider(httpProvider, log.New(os.Stdout, "[QUOTES] ", log.LstdFlags))
		quotes = marketdata.NewCircuitBreakerProvider(retrying)
		logger.Infof("Quote provider enabled: %s", cfg.MarketData.Endpoint)
	}

	manager := chains.NewManager(store, led, log.New(os.Stdout, "[CHAINS] ", log.LstdFlags))

	analyzerOpts := []autowheel.Option{}
	if !cfg.ClosedRequiresAssignment() {
		// Treat any fully-closed option history as a finished round trip.
		analyzerOpts = append(analyzerOpts, autowheel.WithRoundTripRule(func(positions []models.Position) bool {
			if len(positions) == 0 {
				return false
			}
			for i := range positions {
				if positions[i].IsOpen() {
					return false
				}
			}
			return true
		}))
	}
	analyzer := autowheel.New(led, analyzerOpts...)

	server := api.NewServer(api.Config{
		Port:      cfg.Server.Port,
		AuthToken: cfg.Server.AuthToken,
	}, manager, analyzer, quotes, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case sig := <-sigChan:
		logger.Infof("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}

	logger.Info("Server stopped")
}
