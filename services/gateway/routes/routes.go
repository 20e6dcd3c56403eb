// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/AleutianAI/AleutianMarkets/services/gateway/cache"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/chat"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/config"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/handlers"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/session"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/storage"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/telemetry"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/upstream"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, cfg *config.Config, svc *chat.Service,
	gate *session.Gate, marketCache *cache.Cache, upstreamClient *upstream.Client,
	store *storage.BadgerStore) {

	// Prometheus scrape endpoint; nil when metrics are disabled
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/chat", handlers.HandleChat(svc, cfg.MaxQueryLength))
		v1.GET("/chat/ws", handlers.HandleChatWebSocket(svc, cfg.MaxQueryLength))
		v1.GET("/health", handlers.HandleHealth())
		v1.GET("/upstream-health", handlers.HandleUpstreamHealth(upstreamClient, cfg.UpstreamURL))
		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.HandleCreateSession(gate))
			sessions.GET("/:sessionId", handlers.HandleGetSession(gate))
			sessions.GET("/:sessionId/history", handlers.HandleGetSessionHistory(gate))
			sessions.DELETE("/:sessionId", handlers.HandleDeleteSession(gate))
		}
		// Cache administration routes
		cacheAdmin := v1.Group("/cache")
		{
			cacheAdmin.GET("/stats", handlers.HandleCacheStats(marketCache))
			cacheAdmin.DELETE("", handlers.HandleClearCache(marketCache))
		}
		// Store administration routes
		admin := v1.Group("/admin")
		{
			admin.GET("/backup", handlers.HandleBackup(store))
		}
	}
}
