// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the gateway service.
//
// This file contains the request and response types for the chat endpoint:
// the inbound query envelope, the fused answer+data response, and the error
// envelope with its closed set of error codes.
package datatypes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxSessionIDLength bounds the opaque session identifier.
	MaxSessionIDLength = 64

	// DefaultMaxQueryLength is the fallback bound on query text when the
	// configured limit is zero or negative.
	DefaultMaxQueryLength = 5000
)

// sessionIDPattern matches valid session identifiers: 1-64 characters of
// letters, digits, underscore, or hyphen. UUIDv4 strings satisfy this.
var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()

	_ = chatValidate.RegisterValidation("sessionid", validateSessionID)
}

// validateSessionID enforces the session identifier shape. Length 0 and
// length 65 both fail here, before the request reaches the session gate.
func validateSessionID(fl validator.FieldLevel) bool {
	return sessionIDPattern.MatchString(fl.Field().String())
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode identifies a class of chat-pipeline failure. The set is closed:
// the HTTP layer maps each code to a status, so new codes need a mapping.
type ErrorCode string

const (
	ErrCodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired    ErrorCode = "SESSION_EXPIRED"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrCodeNoSymbol          ErrorCode = "NO_SYMBOL"
	ErrCodeNoIndicator       ErrorCode = "NO_INDICATOR"
	ErrCodeMissingCurrencies ErrorCode = "MISSING_CURRENCIES"
	ErrCodeMCPError          ErrorCode = "MCP_ERROR"
	ErrCodeProcessingError   ErrorCode = "PROCESSING_ERROR"
	ErrCodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// =============================================================================
// Chat Request
// =============================================================================

// ChatRequest is the body of POST /v1/chat.
//
// # Description
//
// Carries one conversational turn: the session the turn belongs to and the
// free-form query text. Validation happens before the session gate so that
// malformed identifiers never reach storage.
//
// # Validation
//
//   - SessionID: required, 1-64 chars of [a-zA-Z0-9_-]
//   - Query: required, non-whitespace after trimming, bounded by the
//     configured MAX_QUERY_LENGTH (checked via Validate, not tags, because
//     the bound is runtime configuration)
type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
}

// Validate checks the request against the session-identifier pattern and the
// configured query-length bound. maxQueryLen <= 0 falls back to
// DefaultMaxQueryLength.
func (r *ChatRequest) Validate(maxQueryLen int) error {
	if err := chatValidate.Var(r.SessionID, "required,sessionid"); err != nil {
		return fmt.Errorf("session_id must be 1-%d characters of letters, digits, '_' or '-'", MaxSessionIDLength)
	}
	if maxQueryLen <= 0 {
		maxQueryLen = DefaultMaxQueryLength
	}
	trimmed := strings.TrimSpace(r.Query)
	if trimmed == "" {
		return fmt.Errorf("query must not be empty")
	}
	if len(r.Query) > maxQueryLen {
		return fmt.Errorf("query exceeds maximum length of %d characters", maxQueryLen)
	}
	return nil
}

// =============================================================================
// Chat Response
// =============================================================================

// ChatResponse is the success envelope for one chat turn: a one-sentence
// human-readable answer plus the structured payload it was derived from.
//
// Timestamp is ISO-8601 UTC with a trailing Z; FormattedTime is the pretty
// form, e.g. "November 04, 2025 at 03:07 PM UTC".
type ChatResponse struct {
	Answer        string `json:"answer"`
	Type          string `json:"type"`
	Data          any    `json:"data"`
	Timestamp     string `json:"timestamp"`
	FormattedTime string `json:"formatted_time"`
}

// ErrorDetail is the machine-readable half of an ErrorEnvelope.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorEnvelope is the failure envelope for one chat turn. Answer is written
// in user-facing language; Error carries the technical detail. The rate-limit
// fields are populated only for RATE_LIMITED.
type ErrorEnvelope struct {
	Answer            string      `json:"answer"`
	Error             ErrorDetail `json:"error"`
	CachedData        any         `json:"cached_data,omitempty"`
	RetryAfterSeconds *int        `json:"retry_after_seconds,omitempty"`
	RequestsMade      int         `json:"requests_made,omitempty"`
	RequestsLimit     int         `json:"requests_limit,omitempty"`
}

// =============================================================================
// Structured Data Payloads
// =============================================================================

// PriceData is the payload for type "price".
type PriceData struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	ChangePercent *float64 `json:"change_percent"`
}

// QuoteData is the payload for type "quote".
type QuoteData struct {
	Symbol           string   `json:"symbol"`
	Open             float64  `json:"open"`
	High             float64  `json:"high"`
	Low              float64  `json:"low"`
	Close            float64  `json:"close"`
	Volume           *int64   `json:"volume"`
	ChangePercent    *float64 `json:"change_percent"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low"`
}

// CandleData is one OHLCV bar inside HistoricalData.
type CandleData struct {
	Datetime string  `json:"datetime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   *int64  `json:"volume"`
}

// HistoricalData is the payload for type "historical".
type HistoricalData struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Candles  []CandleData `json:"candles"`
}

// IndicatorData is the payload for type "indicator". Values keeps the
// upstream's per-point objects untouched.
type IndicatorData struct {
	Symbol    string `json:"symbol"`
	Indicator string `json:"indicator"`
	Period    int    `json:"period"`
	Values    []any  `json:"values"`
}

// ConversionData is the payload for type "conversion". The JSON keys "from"
// and "to" match the wire contract of the upstream conversion tool.
type ConversionData struct {
	FromCurrency string  `json:"from"`
	ToCurrency   string  `json:"to"`
	Amount       float64 `json:"amount"`
	Result       float64 `json:"result"`
	Rate         float64 `json:"rate"`
}

// Commodity is one entry of the payload for type "commodities_list".
type Commodity struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// CommoditiesData is the payload for type "commodities_list".
type CommoditiesData struct {
	Commodities []Commodity `json:"commodities"`
}
