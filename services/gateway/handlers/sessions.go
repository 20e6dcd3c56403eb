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
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/session"
	"github.com/gin-gonic/gin"
)

// HandleCreateSession creates a new conversation session.
//
// The body is optional: an empty POST creates an anonymous session, a JSON
// body may carry user_id and metadata. Returns 201 with the session id and
// its initial expiry.
func HandleCreateSession(gate *session.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateSessionRequest
		if c.Request.ContentLength > 0 {
			if err := c.BindJSON(&req); err != nil {
				slog.Error("Failed to parse the create-session request", "error", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		sess, err := gate.Create(req.UserID, req.Metadata)
		if err != nil {
			slog.Error("Failed to create session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		slog.Info("Session created", "session_id", sess.ID, "user_id", sess.UserID)
		c.JSON(http.StatusCreated, datatypes.SessionResponse{
			SessionID: sess.ID,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: gate.ExpiresAt(sess),
		})
	}
}

// HandleGetSession returns session details including activity counters and
// the current expiry. Expired sessions answer 401 so clients know to create
// a fresh one rather than retry.
func HandleGetSession(gate *session.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")

		sess, err := gate.Get(id)
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found: " + id})
		case errors.Is(err, session.ErrSessionExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session has expired: " + id})
		case err != nil:
			slog.Error("Failed to get session", "session_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session"})
		default:
			c.JSON(http.StatusOK, datatypes.SessionInfoResponse{
				SessionID:     sess.ID,
				UserID:        sess.UserID,
				CreatedAt:     sess.CreatedAt,
				LastActivity:  sess.LastActivity,
				ExpiresAt:     gate.ExpiresAt(sess),
				RequestCount:  sess.RequestCount,
				ContextLength: len(sess.Context),
			})
		}
	}
}

// HandleGetSessionHistory returns the rolling conversation context kept for
// follow-up resolution. The window is bounded, so this is recent turns only,
// not a full transcript.
func HandleGetSessionHistory(gate *session.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")

		sess, err := gate.Get(id)
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found: " + id})
		case errors.Is(err, session.ErrSessionExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session has expired: " + id})
		case err != nil:
			slog.Error("Failed to get session history", "session_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session"})
		default:
			history := sess.Context
			if history == nil {
				history = []datatypes.TurnContext{}
			}
			c.JSON(http.StatusOK, datatypes.SessionHistoryResponse{
				SessionID: sess.ID,
				History:   history,
			})
		}
	}
}

// HandleDeleteSession removes a session and its context window.
func HandleDeleteSession(gate *session.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		slog.Info("Received a request to delete a session", "session_id", id)

		deleted, err := gate.Delete(id)
		if err != nil {
			slog.Error("Failed to delete session", "session_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found: " + id})
			return
		}

		c.JSON(http.StatusOK, datatypes.SessionDeleteResponse{
			Message:   "Session deleted successfully",
			SessionID: id,
		})
	}
}
