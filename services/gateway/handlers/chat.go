// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers wires the gateway's HTTP routes to the chat pipeline,
// session gate, cache, and storage layers. Handlers translate pipeline
// error codes to HTTP statuses; everything else passes through as JSON.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/chat"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var chatTracer = otel.Tracer("aleutian.gateway.handlers")

// statusForCode maps pipeline error codes to HTTP statuses. MCP_ERROR stays
// 200 because the envelope carries a conversational answer the client should
// render like any other turn.
var statusForCode = map[datatypes.ErrorCode]int{
	datatypes.ErrCodeSessionNotFound:   http.StatusNotFound,
	datatypes.ErrCodeSessionExpired:    http.StatusUnauthorized,
	datatypes.ErrCodeRateLimited:       http.StatusTooManyRequests,
	datatypes.ErrCodeNoSymbol:          http.StatusBadRequest,
	datatypes.ErrCodeNoIndicator:       http.StatusBadRequest,
	datatypes.ErrCodeMissingCurrencies: http.StatusBadRequest,
	datatypes.ErrCodeMCPError:          http.StatusOK,
	datatypes.ErrCodeProcessingError:   http.StatusInternalServerError,
	datatypes.ErrCodeInternalError:     http.StatusInternalServerError,
}

// statusFor returns the HTTP status for a pipeline error code.
// Unknown codes are treated as internal errors.
func statusFor(code datatypes.ErrorCode) int {
	if status, ok := statusForCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleChat processes one conversational turn.
//
// # Description
//
// Binds and validates the request body, then hands the turn to the chat
// service. Pipeline failures arrive as ErrorEnvelope values and are written
// at the status statusForCode assigns; successes are written as 200 with
// the ChatResponse.
//
// Validation failures (malformed JSON, bad session id format, empty or
// oversized query) are rejected with 400 before the session gate runs.
//
// # Inputs
//
//   - svc: The chat service. Must not be nil.
//   - maxQueryLen: Query length bound from configuration; <= 0 uses the
//     built-in default.
//
// # Outputs
//
//   - gin.HandlerFunc: Handler for POST /v1/chat
func HandleChat(svc *chat.Service, maxQueryLen int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := req.Validate(maxQueryLen); err != nil {
			slog.Warn("Rejected chat request", "session_id", req.SessionID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, errEnv := svc.ProcessChat(ctx, req.SessionID, req.Query)
		if errEnv != nil {
			c.JSON(statusFor(errEnv.Error.Code), errEnv)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
