// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianMarkets/pkg/logging"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/archive"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/cache"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/chat"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/config"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/middleware"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/observability"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/routes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/session"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/storage"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/telemetry"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/ttl"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/upstream"
)

func main() {
	cfg := config.Load()

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  cfg.LogDir,
		Service: "gateway",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Wipe the API-key enclave on the way out.
	defer memguard.Purge()

	// --- Init telemetry ---
	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = config.Version
	shutdownTelemetry, err := telemetry.Init(context.Background(), telCfg)
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Error("failed to shutdown telemetry", "error", err)
		}
	}()
	observability.InitMetrics()

	// --- Persistent store ---
	store, err := storage.Open(cfg.BadgerPath)
	if err != nil {
		log.Fatalf("failed to open the gateway store at %s: %v", cfg.BadgerPath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close the gateway store", "error", err)
		}
	}()

	gate := session.NewGate(store, cfg.SessionTimeout, cfg.RateLimitWindow)
	marketCache := cache.New(store, cache.Policy{
		PriceSeconds:      cfg.CacheTTLPrice,
		HistoricalSeconds: cfg.CacheTTLHistorical,
		IndicatorSeconds:  cfg.CacheTTLIndicator,
	})
	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL: cfg.UpstreamURL,
		Timeout: cfg.UpstreamTimeout,
		APIKey:  cfg.UpstreamAPIKey,
		MaxRPS:  cfg.UpstreamMaxRPS,
	})

	chatCfg := chat.Config{RateLimitRequests: cfg.RateLimitRequests}

	// Optional candle archive. An unreachable Influx is not fatal: the write
	// API buffers and retries, and chat turns never wait on it.
	if cfg.ArchiveEnabled() {
		archiver := archive.NewInfluxArchiver(archive.Config{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		})
		defer archiver.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := archiver.Ping(pingCtx); err != nil {
			slog.Warn("InfluxDB is not reachable, candle archival will retry in the background",
				"url", cfg.InfluxURL, "error", err)
		}
		cancel()

		chatCfg.Archiver = archiver
		slog.Info("Candle archive enabled", "bucket", cfg.InfluxBucket)
	} else {
		slog.Info("INFLUXDB_URL not set or empty. Running in lightweight mode (no candle archive).")
	}

	svc := chat.NewService(gate, marketCache, upstreamClient, chatCfg)

	// --- Background janitors ---
	janitorCtx, stopJanitors := context.WithCancel(context.Background())
	defer stopJanitors()

	janitor := ttl.NewJanitor(store, cfg.SessionTimeout, ttl.NewClockChecker(), ttl.DefaultJanitorConfig())
	sessionSweeper := ttl.NewScheduler("sessions", cfg.SessionCleanupInterval, janitor.SweepSessions)
	cacheSweeper := ttl.NewScheduler("cache", cfg.CacheCleanupInterval, janitor.SweepCache)
	if err := sessionSweeper.Start(janitorCtx); err != nil {
		log.Fatalf("failed to start the session sweeper: %v", err)
	}
	defer func() { _ = sessionSweeper.Stop() }()
	if err := cacheSweeper.Start(janitorCtx); err != nil {
		log.Fatalf("failed to start the cache sweeper: %v", err)
	}
	defer func() { _ = cacheSweeper.Stop() }()

	// --- HTTP surface ---
	router := gin.New()
	router.Use(otelgin.Middleware("gateway-service"))
	router.Use(middleware.Timing())
	router.Use(middleware.CORS())
	router.Use(middleware.Recovery())

	routes.SetupRoutes(router, cfg, svc, gate, marketCache, upstreamClient, store)

	srv := &http.Server{
		Addr:    ":" + cfg.GatewayPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting the market gateway", "port", cfg.GatewayPort, "upstream", cfg.UpstreamURL)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-quit:
		slog.Info("Shutdown signal received", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
