// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/cache"
	"github.com/gin-gonic/gin"
)

// HandleCacheStats reports cache occupancy broken down by query type.
func HandleCacheStats(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := store.Stats()
		if err != nil {
			slog.Error("Failed to read cache stats", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read cache stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// HandleClearCache drops every cache entry and reports how many were removed.
func HandleClearCache(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cleared, err := store.Clear()
		if err != nil {
			slog.Error("Failed to clear cache", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
			return
		}
		slog.Info("Cache cleared", "entries", cleared)
		c.JSON(http.StatusOK, gin.H{"cleared": cleared})
	}
}
