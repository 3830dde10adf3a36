package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/djeex/nvidia-stock-bot/internal/config"
	"github.com/djeex/nvidia-stock-bot/internal/discord"
	"github.com/djeex/nvidia-stock-bot/internal/engine"
	"github.com/djeex/nvidia-stock-bot/internal/httpx"
	"github.com/djeex/nvidia-stock-bot/internal/locale"
	"github.com/djeex/nvidia-stock-bot/internal/nvidia"
	"github.com/djeex/nvidia-stock-bot/internal/worker"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "err", err)
		os.Exit(1)
	}

	bundle, err := locale.Load(cfg.LocalizationFile, cfg.Language)
	if err != nil {
		logger.Error("localization unavailable", "err", err)
		os.Exit(1)
	}

	logger.Info("starting",
		"products", cfg.ProductNames,
		"webhook", cfg.WebhookMasked,
		"catalog_url", cfg.CatalogURL,
		"inventory_url", cfg.InventoryURL,
		"product_url", cfg.ProductURL,
		"refresh", cfg.RefreshEvery,
		"language", bundle.Language,
		"match_mode", cfg.MatchMode,
		"test_mode", cfg.TestMode,
	)

	client := httpx.New(httpx.WithLogger(logger))

	sink := &discord.Webhook{
		URL:        cfg.WebhookURL,
		ServerName: cfg.ServerName,
		ProductURL: cfg.ProductURL,
		Currency:   cfg.Currency,
		Roles:      cfg.RoleMentions,
		Bundle:     bundle,
		TestMode:   cfg.TestMode,
		Logger:     logger,
	}
	if err := sink.Validate(); err != nil {
		logger.Error("notification sink invalid", "err", err)
		os.Exit(1)
	}

	eng := &engine.Engine{
		Catalog: &nvidia.CatalogClient{
			URL:       cfg.CatalogURL,
			HTTP:      client,
			Substring: cfg.MatchMode == config.MatchSubstring,
			Logger:    logger,
		},
		Inventory: &nvidia.InventoryClient{
			BaseURL: cfg.InventoryURL,
			HTTP:    client,
			Logger:  logger,
		},
		Notifier: sink,
		Products: cfg.ProductNames,
		State:    engine.NewTransitionState(),
		Logger:   logger,
	}

	r := worker.Runner{
		Interval: cfg.RefreshEvery,
		CycleFn:  eng.RunCycle,
		Logger:   logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := r.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("runner stopped", "err", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(logger, cancel)
}

func waitForShutdown(logger *log.Logger, cancel func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("shutdown signal received")
	cancel()
	logger.Info("shutdown complete")
}
