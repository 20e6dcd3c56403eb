// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file defines the ChatService interface and its gateway-backed
// implementation. The service owns the session lifecycle: it creates a
// session lazily on the first message, carries the session ID across turns,
// and drops the ID when the gateway reports the session gone so the next
// message starts fresh.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianMarkets/pkg/ux"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

// =============================================================================
// INTERFACES
// =============================================================================

// ChatService defines the contract for one conversational exchange with the
// gateway.
//
// # Description
//
// SendMessage posts one turn and returns the rendered view of the answer,
// whether the gateway succeeded or handed back an error envelope. Transport
// and decode failures are the only error returns; a pipeline failure (bad
// query, rate limit, upstream outage) comes back as an AnswerView carrying
// the error code, because the envelope's answer text is written for the user
// and should be rendered like any other turn.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ChatService interface {
	// SendMessage sends one user query and returns the answer view.
	SendMessage(ctx context.Context, message string) (*ux.AnswerView, error)

	// GetSessionID returns the active session ID, or empty before the
	// first successful exchange.
	GetSessionID() string

	// Close releases any resources held by the service.
	Close() error
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// GatewayChatServiceConfig holds configuration for the gateway chat service.
// Only BaseURL is required.
//
// # Fields
//
//   - BaseURL: Gateway URL without trailing slash (required).
//   - SessionID: Existing session to resume (optional).
//   - UserID: Attributed to sessions the service creates (optional).
//   - HTTPClient: Injected client for tests (optional).
//   - Timeout: HTTP timeout when HTTPClient is nil. Default: 60 seconds,
//     generous because rate-limited turns can queue behind the upstream
//     limiter before the gateway answers.
type GatewayChatServiceConfig struct {
	BaseURL    string
	SessionID  string
	UserID     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// =============================================================================
// IMPLEMENTATION
// =============================================================================

// gatewayChatService implements ChatService against the gateway's REST API.
//
// # Thread Safety
//
// One mutex guards the whole exchange so the session ID cannot change
// between the lazy create and the chat post.
type gatewayChatService struct {
	client    *http.Client
	baseURL   string
	sessionID string
	userID    string
	mu        sync.Mutex
}

// NewGatewayChatService creates a chat service bound to one gateway.
//
// # Inputs
//
//   - config: Service configuration. Only BaseURL is required.
//
// # Outputs
//
//   - ChatService: Ready-to-use service. No connectivity check is performed.
func NewGatewayChatService(config GatewayChatServiceConfig) ChatService {
	client := config.HTTPClient
	if client == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &gatewayChatService{
		client:    client,
		baseURL:   config.BaseURL,
		sessionID: config.SessionID,
		userID:    config.UserID,
	}
}

// =============================================================================
// METHODS
// =============================================================================

// SendMessage posts one conversational turn to POST /v1/chat.
//
// # Description
//
// Creates a session first if none is active. The response time reported on
// the view is measured here, around the HTTP exchange, since the gateway's
// response carries no timing.
//
// # Inputs
//
//   - ctx: Context for cancellation/timeout.
//   - message: User's query text. Must not be empty.
//
// # Outputs
//
//   - *ux.AnswerView: The turn's answer, or the envelope's answer with its
//     error code when the pipeline failed.
//   - error: Non-nil on marshal, network, or decode errors only.
//
// # Limitations
//
//   - Does not retry on transient errors.
func (s *gatewayChatService) SendMessage(ctx context.Context, message string) (*ux.AnswerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSessionLocked(ctx); err != nil {
		return nil, err
	}

	reqBody := datatypes.ChatRequest{
		SessionID: s.sessionID,
		Query:     message,
	}
	postBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	targetURL := fmt.Sprintf("%s/v1/chat", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewBuffer(postBody))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("sending chat message",
		"session_id", s.sessionID,
		"message_length", len(message),
	)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("chat HTTP request failed", "url", targetURL, "error", err)
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()
	elapsedMS := float64(time.Since(start).Milliseconds())

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	view, err := s.decodeTurnLocked(resp.StatusCode, bodyBytes)
	if err != nil {
		return nil, err
	}
	view.ResponseMS = elapsedMS

	slog.Debug("chat message completed",
		"session_id", s.sessionID,
		"type", view.Type,
		"error_code", view.ErrorCode,
		"duration_ms", elapsedMS,
	)

	return view, nil
}

// ensureSessionLocked creates a gateway session when none is active.
// Must be called while holding s.mu.
func (s *gatewayChatService) ensureSessionLocked(ctx context.Context) error {
	if s.sessionID != "" {
		return nil
	}

	reqBody := datatypes.CreateSessionRequest{
		UserID:   s.userID,
		Metadata: map[string]string{"client": "markets-cli"},
	}
	postBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal session request: %w", err)
	}

	targetURL := fmt.Sprintf("%s/v1/sessions", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewBuffer(postBody))
	if err != nil {
		return fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("session create request failed", "url", targetURL, "error", err)
		return fmt.Errorf("http post: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var created datatypes.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("parse session response: %w", err)
	}
	s.sessionID = created.SessionID

	slog.Debug("created gateway session",
		"session_id", created.SessionID,
		"expires_at", created.ExpiresAt,
	)

	return nil
}

// decodeTurnLocked turns one chat response body into an AnswerView.
// Must be called while holding s.mu.
//
// The gateway writes some error envelopes (stale-cache answers) with status
// 200, so the body shape decides which branch applies, not the status code.
func (s *gatewayChatService) decodeTurnLocked(status int, body []byte) (*ux.AnswerView, error) {
	var envelope datatypes.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		switch envelope.Error.Code {
		case datatypes.ErrCodeSessionNotFound, datatypes.ErrCodeSessionExpired:
			// The session is gone on the server. Drop the ID so the
			// next message starts a fresh session instead of failing
			// on every turn.
			s.sessionID = ""
		}
		return &ux.AnswerView{
			Answer:            envelope.Answer,
			ErrorCode:         string(envelope.Error.Code),
			Stale:             envelope.CachedData != nil,
			RetryAfterSeconds: envelope.RetryAfterSeconds,
		}, nil
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("server error (%d): %s", status, string(body))
	}

	var answer datatypes.ChatResponse
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, fmt.Errorf("parse chat response: %w", err)
	}
	return &ux.AnswerView{
		Answer: answer.Answer,
		Type:   answer.Type,
	}, nil
}

// GetSessionID returns the active session ID, or empty before the first
// successful exchange.
func (s *gatewayChatService) GetSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Close releases resources held by the service. No-op for the HTTP
// implementation; provided for interface compliance.
func (s *gatewayChatService) Close() error {
	return nil
}

// =============================================================================
// COMPILE-TIME INTERFACE CHECKS
// =============================================================================

var _ ChatService = (*gatewayChatService)(nil)
