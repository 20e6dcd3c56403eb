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
	"strconv"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/storage"
	"github.com/gin-gonic/gin"
)

// HandleBackup streams a Badger backup of the whole store (sessions and
// cache entries) to the caller.
//
// An optional ?since= query parameter requests an incremental backup from
// that Badger version; the full-backup default is 0. The stream is raw
// Badger backup format, restorable with badger restore or DB.Load.
//
// Errors after the first byte cannot change the status code; they truncate
// the stream and are logged. Clients should verify backups by restoring.
func HandleBackup(store *storage.BadgerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		since := uint64(0)
		if raw := c.Query("since"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
				return
			}
			since = parsed
		}

		c.Header("Content-Type", "application/octet-stream")
		c.Header("Content-Disposition", `attachment; filename="gateway.badger.bak"`)

		maxVersion, err := store.Backup(c.Writer, since)
		if err != nil {
			slog.Error("Backup stream failed", "since", since, "error", err)
			if !c.Writer.Written() {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stream backup"})
			}
			return
		}
		slog.Info("Backup streamed", "since", since, "max_version", maxVersion)
	}
}
