// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the gateway configuration from the environment.
//
// Every knob has a default that works for local development; unparsable
// values fall back to their default with a warning rather than failing the
// boot. Secrets (the upstream API key) are sealed into a memguard enclave at
// load time so the plaintext never sits in an ordinary heap string longer
// than necessary.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/awnumar/memguard"
)

// Version is the gateway release version reported by /v1/health.
const Version = "0.2.0"

// Config is the resolved runtime configuration of the gateway.
type Config struct {
	// HTTP listener
	GatewayPort string

	// Persistent store
	BadgerPath string

	// Upstream tool server
	UpstreamURL     string
	UpstreamTimeout time.Duration
	UpstreamAPIKey  *memguard.Enclave // nil when no key is configured
	UpstreamMaxRPS  float64           // 0 disables client-side throttling

	// Sessions
	SessionTimeout         time.Duration
	SessionCleanupInterval time.Duration
	RateLimitRequests      int
	RateLimitWindow        time.Duration

	// Cache TTLs (seconds, keyed by query type)
	CacheTTLPrice        int
	CacheTTLHistorical   int
	CacheTTLIndicator    int
	CacheCleanupInterval time.Duration

	// Request limits
	MaxQueryLength int

	// Optional candle archive (empty URL = lightweight mode)
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Logging
	LogLevel string
	LogDir   string
}

// Load reads the environment and returns the resolved configuration.
func Load() *Config {
	cfg := &Config{
		GatewayPort: getEnv("GATEWAY_PORT", "8080"),
		BadgerPath:  getEnv("BADGER_PATH", "./data/gateway"),

		UpstreamURL:     getEnv("UPSTREAM_URL", "http://localhost:3847"),
		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		UpstreamMaxRPS:  getEnvFloat("UPSTREAM_MAX_RPS", 0),

		SessionTimeout:         time.Duration(getEnvInt("SESSION_TIMEOUT_MINUTES", 60)) * time.Minute,
		SessionCleanupInterval: time.Duration(getEnvInt("SESSION_CLEANUP_INTERVAL_MINUTES", 15)) * time.Minute,
		RateLimitRequests:      getEnvInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:        time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		CacheTTLPrice:        getEnvInt("CACHE_TTL_PRICE", 45),
		CacheTTLHistorical:   getEnvInt("CACHE_TTL_HISTORICAL", 300),
		CacheTTLIndicator:    getEnvInt("CACHE_TTL_INDICATOR", 300),
		CacheCleanupInterval: time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute,

		MaxQueryLength: getEnvInt("MAX_QUERY_LENGTH", 5000),

		InfluxURL:    getEnv("INFLUXDB_URL", ""),
		InfluxToken:  getEnv("INFLUXDB_TOKEN", ""),
		InfluxOrg:    getEnv("INFLUXDB_ORG", "aleutian"),
		InfluxBucket: getEnv("INFLUXDB_BUCKET", "candles"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", ""),
	}

	if key := os.Getenv("UPSTREAM_API_KEY"); key != "" {
		cfg.UpstreamAPIKey = memguard.NewEnclave([]byte(key))
	}

	return cfg
}

// ArchiveEnabled reports whether the candle archive is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.InfluxURL != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float in environment, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}
