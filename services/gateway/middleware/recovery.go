// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

// =============================================================================
// Recovery Middleware
// =============================================================================

// recoveredAnswer is the user-facing answer carried by the envelope a
// recovered panic produces.
const recoveredAnswer = "An unexpected error occurred. Please try again."

// Recovery creates a Gin middleware that converts handler panics into
// INTERNAL_ERROR envelopes.
//
// # Description
//
// Recovers any panic raised in the handler chain, logs it together with
// the goroutine stack, and writes the standard error envelope with a 500
// status. Clients of this API receive the envelope shape on every failure
// path, panics included.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
//
// # Examples
//
//	router := gin.New()
//	router.Use(middleware.Recovery())
//
// # Thread Safety
//
// Thread-safe. No shared state.
func Recovery() gin.HandlerFunc {
	// gin's own stack print is discarded; the slog line below is the one
	// record of the panic.
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		slog.Error("Panic recovered",
			"endpoint", c.Request.URL.Path,
			"panic", err,
			"stack", string(debug.Stack()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, datatypes.ErrorEnvelope{
			Answer: recoveredAnswer,
			Error: datatypes.ErrorDetail{
				Code:    datatypes.ErrCodeInternalError,
				Message: "internal server error",
			},
		})
	})
}
