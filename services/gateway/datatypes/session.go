// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// ========== DOMAIN MODEL ==========

// Session is the durable per-conversation state: identity, activity
// timestamps, the bounded turn context, and the sliding-window rate counter.
// It is stored as one row; all mutation goes through the session gate.
type Session struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	LastActivity       time.Time         `json:"last_activity"`
	Context            []TurnContext     `json:"context"`
	RequestCount       int               `json:"request_count"`
	RequestWindowStart time.Time         `json:"request_window_start"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// TurnContext records one successful interpreted query. The newest ten
// entries are kept per session and drive follow-up resolution ("its RSI?").
type TurnContext struct {
	Query     string    `json:"query"`
	Symbols   []string  `json:"symbols"`
	Intent    string    `json:"intent"`
	Indicator string    `json:"indicator,omitempty"`
	Interval  string    `json:"interval,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ========== REQUEST/RESPONSE STRUCTURES ==========

// CreateSessionRequest is the body of POST /v1/sessions. Both fields are
// optional; anonymous sessions are the common case.
type CreateSessionRequest struct {
	UserID   string            `json:"user_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SessionResponse is returned on session creation.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionInfoResponse is returned by GET /v1/sessions/:sessionId.
type SessionInfoResponse struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	ExpiresAt     time.Time `json:"expires_at"`
	RequestCount  int       `json:"request_count"`
	ContextLength int       `json:"context_length"`
}

// SessionHistoryResponse is returned by GET /v1/sessions/:sessionId/history.
type SessionHistoryResponse struct {
	SessionID string        `json:"session_id"`
	History   []TurnContext `json:"history"`
}

// SessionDeleteResponse is returned by DELETE /v1/sessions/:sessionId.
type SessionDeleteResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}
