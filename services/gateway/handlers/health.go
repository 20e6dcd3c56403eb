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
	"net/http"
	"time"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/config"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/upstream"
	"github.com/gin-gonic/gin"
)

// HandleHealth answers the gateway liveness probe.
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"version":   config.Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// HandleUpstreamHealth probes the upstream market server and reports
// reachability. Always 200; the body says whether the upstream is usable.
func HandleUpstreamHealth(client *upstream.Client, upstreamURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client.HealthCheck(c.Request.Context()) {
			c.JSON(http.StatusOK, gin.H{
				"status":       "connected",
				"upstream_url": upstreamURL,
				"connected":    true,
				"message":      "Upstream market server is healthy",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       "disconnected",
			"upstream_url": upstreamURL,
			"connected":    false,
			"message":      "Failed to connect to upstream market server",
		})
	}
}
