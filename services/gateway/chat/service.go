// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chat implements the conversational orchestrator for the market
// gateway.
//
// # Description
//
// One entry point, ProcessChat, takes a session id and a raw natural-language
// query and runs it through the full pipeline: session gate (expiry and rate
// limit), query interpreter, tiered cache, and the upstream market-data
// client. Every intent handler follows the same sequence: validate required
// entities, try the cache, call upstream, store and format on success, fall
// back to a stale cache entry on failure, and only then surface the upstream
// error. Successful turns with resolved symbols are appended to the session's
// rolling context so follow-up queries ("what about its RSI?") resolve.
//
// # Thread Safety
//
// Service is safe for concurrent use. Concurrent requests for the same cache
// slot share one upstream call via singleflight.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/cache"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/interpret"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/observability"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/session"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/upstream"
)

var tracer = otel.Tracer("aleutian.gateway.chat")

// =============================================================================
// Dependencies
// =============================================================================

// MarketClient is the slice of the upstream client the orchestrator
// dispatches to. *upstream.Client satisfies it; tests substitute fakes.
type MarketClient interface {
	GetPrice(ctx context.Context, symbol string) *upstream.ToolResult
	GetQuote(ctx context.Context, symbol string) *upstream.ToolResult
	GetTimeSeries(ctx context.Context, q upstream.TimeSeriesQuery) *upstream.ToolResult
	TechnicalIndicator(ctx context.Context, q upstream.IndicatorQuery) *upstream.ToolResult
	ConvertCurrency(ctx context.Context, from, to string, amount float64) *upstream.ToolResult
	ListCommodities(ctx context.Context) *upstream.ToolResult
}

// CandleArchiver receives candles fetched live from upstream for long-term
// retention. Implementations must not block the request path.
type CandleArchiver interface {
	ArchiveCandles(symbol, interval string, candles []datatypes.CandleData)
}

// Config carries the orchestrator's tunables.
type Config struct {
	// RateLimitRequests is the per-session request budget per rate window.
	RateLimitRequests int

	// Archiver, when set, receives candles from successful historical
	// fetches. Optional.
	Archiver CandleArchiver
}

// Service is the conversational orchestrator.
type Service struct {
	gate    *session.Gate
	cache   *cache.Cache
	market  MarketClient
	archive CandleArchiver
	limit   int
	flight  singleflight.Group

	// now is swapped out by tests to pin timestamps.
	now func() time.Time
}

// NewService wires the orchestrator over its collaborators.
func NewService(gate *session.Gate, store *cache.Cache, market MarketClient, cfg Config) *Service {
	return &Service{
		gate:    gate,
		cache:   store,
		market:  market,
		archive: cfg.Archiver,
		limit:   cfg.RateLimitRequests,
		now:     time.Now,
	}
}

// =============================================================================
// Pipeline
// =============================================================================

// ProcessChat runs one conversational turn end to end.
//
// # Description
//
// The pipeline: resolve the session (missing and expired sessions produce
// distinct envelopes), slide its activity window, consume rate-limit quota,
// interpret the query against the session's turn context, dispatch to the
// intent handler, and record the turn for follow-up resolution. Quota and
// context-write failures are logged but never fail the turn; unexpected
// handler errors map to PROCESSING_ERROR.
//
// # Inputs
//
//   - ctx: Request context; cancellation aborts the upstream call.
//   - sessionID: The session the turn belongs to.
//   - query: Raw natural-language query text.
//
// # Outputs
//
//   - *datatypes.ChatResponse: The success envelope, nil on failure.
//   - *datatypes.ErrorEnvelope: The failure envelope, nil on success.
//
// Exactly one of the two is non-nil.
func (s *Service) ProcessChat(ctx context.Context, sessionID, query string) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope) {
	start := s.now()
	ctx, span := tracer.Start(ctx, "ProcessChat")
	defer span.End()

	slog.Info("Processing chat request", "session_id", sessionID, "query_length", len(query))

	sess, err := s.gate.Get(sessionID)
	if err != nil {
		return nil, s.sessionFailure(span, sessionID, err)
	}

	if err := s.gate.Touch(sessionID); err != nil {
		slog.Error("Failed to update session activity", "session_id", sessionID, "error", err)
	}

	count, retryAfter, err := s.gate.ConsumeQuota(sessionID)
	if err != nil {
		// A broken counter must not take the whole pipeline down.
		slog.Error("Rate limit check failed", "session_id", sessionID, "error", err)
	} else if count > s.limit {
		recordError(datatypes.ErrCodeRateLimited)
		span.SetStatus(codes.Error, "rate limited")
		return nil, &datatypes.ErrorEnvelope{
			Answer: fmt.Sprintf("You've made too many requests. Please wait %d seconds before trying again.", retryAfter),
			Error: datatypes.ErrorDetail{
				Code:    datatypes.ErrCodeRateLimited,
				Message: fmt.Sprintf("Rate limit exceeded: %d/%d requests", count, s.limit),
			},
			RetryAfterSeconds: &retryAfter,
			RequestsMade:      count,
			RequestsLimit:     s.limit,
		}
	}

	parsed := interpret.Parse(query, sess.Context)
	slog.Info("Parsed query", "intent", parsed.Intent, "symbols", parsed.Symbols)
	span.SetAttributes(
		attribute.String("chat.intent", string(parsed.Intent)),
		attribute.Int("chat.symbol_count", len(parsed.Symbols)),
	)

	resp, env, err := s.dispatch(ctx, parsed)
	if err != nil {
		slog.Error("Error processing chat", "session_id", sessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordError(datatypes.ErrCodeProcessingError)
		recordTurn(parsed.Intent, false, s.now().Sub(start).Seconds())
		return nil, errorEnvelope(datatypes.ErrCodeProcessingError, answerProcessing, err.Error())
	}

	if resp != nil && len(parsed.Symbols) > 0 {
		turn := datatypes.TurnContext{
			Query:     parsed.RawQuery,
			Symbols:   parsed.Symbols,
			Intent:    string(parsed.Intent),
			Indicator: parsed.Indicator,
			Interval:  parsed.Interval,
			Timestamp: s.now().UTC(),
		}
		if err := s.gate.AppendContext(sessionID, turn); err != nil {
			slog.Error("Failed to update session context", "session_id", sessionID, "error", err)
		}
	}

	if env != nil {
		recordError(env.Error.Code)
		span.SetStatus(codes.Error, string(env.Error.Code))
	}
	recordTurn(parsed.Intent, resp != nil, s.now().Sub(start).Seconds())
	return resp, env
}

// dispatch routes a parsed query to its intent handler. Comparison and
// unknown intents ride the price path.
func (s *Service) dispatch(ctx context.Context, parsed interpret.ParsedQuery) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope, error) {
	switch parsed.Intent {
	case interpret.IntentPrice:
		return s.handlePrice(ctx, parsed)
	case interpret.IntentQuote:
		return s.handleQuote(ctx, parsed)
	case interpret.IntentHistorical:
		return s.handleHistorical(ctx, parsed)
	case interpret.IntentIndicator:
		return s.handleIndicator(ctx, parsed)
	case interpret.IntentConversion:
		return s.handleConversion(ctx, parsed)
	case interpret.IntentCommoditiesList:
		return s.handleCommodities(ctx)
	default:
		return s.handlePrice(ctx, parsed)
	}
}

// sessionFailure maps a gate error onto its error envelope.
func (s *Service) sessionFailure(span trace.Span, sessionID string, err error) *datatypes.ErrorEnvelope {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		recordError(datatypes.ErrCodeSessionExpired)
		span.SetStatus(codes.Error, "session expired")
		return errorEnvelope(datatypes.ErrCodeSessionExpired, answerSessionExpired,
			fmt.Sprintf("Session %s has expired due to inactivity", sessionID))
	case errors.Is(err, session.ErrSessionNotFound):
		recordError(datatypes.ErrCodeSessionNotFound)
		span.SetStatus(codes.Error, "session not found")
		return errorEnvelope(datatypes.ErrCodeSessionNotFound, answerSessionNotFound,
			fmt.Sprintf("Session %s does not exist", sessionID))
	default:
		recordError(datatypes.ErrCodeInternalError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errorEnvelope(datatypes.ErrCodeInternalError, answerInternal, err.Error())
	}
}

// =============================================================================
// Intent Handlers
// =============================================================================

// Handlers return (response, envelope, err). A non-nil err means an
// unexpected failure (store layer, malformed state) and maps to
// PROCESSING_ERROR in ProcessChat.

func (s *Service) handlePrice(ctx context.Context, parsed interpret.ParsedQuery) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope, error) {
	if len(parsed.Symbols) == 0 {
		return nil, errorEnvelope(datatypes.ErrCodeNoSymbol, answerNoSymbolPrice, msgNoSymbol), nil
	}
	symbol := parsed.Symbols[0]
	params := map[string]any{"symbol": symbol}

	data, source, upstreamErr, err := s.fetch(ctx, "price", params, upstream.ToolGetPrice, func(ctx context.Context) *upstream.ToolResult {
		return s.market.GetPrice(ctx, symbol)
	})
	if err != nil {
		return nil, nil, err
	}
	if upstreamErr != "" {
		return nil, &datatypes.ErrorEnvelope{
			Answer: fmt.Sprintf("Sorry, I couldn't get the price for %s. %s", symbol, upstreamErr),
			Error:  datatypes.ErrorDetail{Code: datatypes.ErrCodeMCPError, Message: upstreamErr},
		}, nil
	}

	resp := formatPrice(s.now(), symbol, data)
	if source == sourceStale {
		resp.Answer = stalePricePrefix + resp.Answer
	}
	return resp, nil, nil
}

func (s *Service) handleQuote(ctx context.Context, parsed interpret.ParsedQuery) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope, error) {
	if len(parsed.Symbols) == 0 {
		return nil, errorEnvelope(datatypes.ErrCodeNoSymbol, answerNoSymbolQuote, msgNoSymbol), nil
	}
	symbol := parsed.Symbols[0]
	params := map[string]any{"symbol": symbol}

	data, source, upstreamErr, err := s.fetch(ctx, "quote", params, upstream.ToolGetQuote, func(ctx context.Context) *upstream.ToolResult {
		return s.market.GetQuote(ctx, symbol)
	})
	if err != nil {
		return nil, nil, err
	}
	if upstreamErr != "" {
		return nil, &datatypes.ErrorEnvelope{
			Answer: fmt.Sprintf("Sorry, I couldn't get quote data for %s. %s", symbol, upstreamErr),
			Error:  datatypes.ErrorDetail{Code: datatypes.ErrCodeMCPError, Message: upstreamErr},
		}, nil
	}

	resp := formatQuote(s.now(), symbol, data)
	if source == sourceStale {
		resp.Answer = staleDataPrefix + resp.Answer
	}
	return resp, nil, nil
}

func (s *Service) handleHistorical(ctx context.Context, parsed interpret.ParsedQuery) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope, error) {
	if len(parsed.Symbols) == 0 {
		return nil, errorEnvelope(datatypes.ErrCodeNoSymbol, answerNoSymbolHistorical, msgNoSymbol), nil
	}
	symbol := parsed.Symbols[0]
	params := map[string]any{
		"symbol":     symbol,
		"interval":   parsed.Interval,
		"outputsize": parsed.OutputSize,
	}

	data, source, upstreamErr, err := s.fetch(ctx, "historical", params, upstream.ToolGetTimeSeries, func(ctx context.Context) *upstream.ToolResult {
		return s.market.GetTimeSeries(ctx, upstream.TimeSeriesQuery{
			Symbol:     symbol,
			Interval:   parsed.Interval,
			OutputSize: parsed.OutputSize,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if upstreamErr != "" {
		return nil, &datatypes.ErrorEnvelope{
			Answer: fmt.Sprintf("Sorry, I couldn't get historical data for %s. %s", symbol, upstreamErr),
			Error:  datatypes.ErrorDetail{Code: datatypes.ErrCodeMCPError, Message: upstreamErr},
		}, nil
	}

	resp := formatHistorical(s.now(), symbol, parsed.Interval, data)
	switch source {
	case sourceStale:
		resp.Answer = staleDataPrefix + resp.Answer
	case sourceUpstream:
		if s.archive != nil {
			if h, ok := resp.Data.(datatypes.HistoricalData); ok {
				s.archive.ArchiveCandles(symbol, parsed.Interval, h.Candles)
			}
		}
	}
	return resp, nil, nil
}

func (s *Service) handleIndicator(ctx context.Context, parsed interpret.ParsedQuery) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope, error) {
	if len(parsed.Symbols) == 0 {
		return nil, errorEnvelope(datatypes.ErrCodeNoSymbol, answerNoSymbolIndicator, msgNoSymbol), nil
	}
	if parsed.Indicator == "" {
		return nil, errorEnvelope(datatypes.ErrCodeNoIndicator, answerNoIndicator, msgNoIndicator), nil
	}
	symbol := parsed.Symbols[0]
	params := map[string]any{
		"symbol":      symbol,
		"indicator":   parsed.Indicator,
		"interval":    parsed.Interval,
		"time_period": parsed.TimePeriod,
	}

	data, source, upstreamErr, err := s.fetch(ctx, "indicator", params, upstream.ToolTechnicalIndicator, func(ctx context.Context) *upstream.ToolResult {
		return s.market.TechnicalIndicator(ctx, upstream.IndicatorQuery{
			Symbol:     symbol,
			Indicator:  parsed.Indicator,
			Interval:   parsed.Interval,
			TimePeriod: parsed.TimePeriod,
			OutputSize: parsed.OutputSize,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if upstreamErr != "" {
		return nil, &datatypes.ErrorEnvelope{
			Answer: fmt.Sprintf("Sorry, I couldn't calculate %s for %s. %s",
				strings.ToUpper(parsed.Indicator), symbol, upstreamErr),
			Error: datatypes.ErrorDetail{Code: datatypes.ErrCodeMCPError, Message: upstreamErr},
		}, nil
	}

	resp := formatIndicator(s.now(), symbol, parsed.Indicator, parsed.TimePeriod, data)
	if source == sourceStale {
		resp.Answer = staleDataPrefix + resp.Answer
	}
	return resp, nil, nil
}

func (s *Service) handleConversion(ctx context.Context, parsed interpret.ParsedQuery) (*datatypes.ChatResponse, *datatypes.ErrorEnvelope, error) {
	if parsed.FromCurrency == "" || parsed.ToCurrency == "" {
		return nil, errorEnvelope(datatypes.ErrCodeMissingCurrencies, answerMissingCurrencies, msgMissingCurrencies), nil
	}

	amount := 1.0
	if parsed.Amount != nil && *parsed.Amount != 0 {
		amount = *parsed.Amount
	}

	// Conversions are never cached; rates move too fast for the price tier.
	result := s.market.ConvertCurrency(ctx, parsed.FromCurrency, parsed.ToCurrency, amount)
	recordUpstreamCall(upstream.ToolConvertCurrency, result)

	if !result.Success {
		return nil, &datatypes.ErrorEnvelope{
			Answer: fmt.Sprintf("Sorry, I couldn't convert %s to %s. %s",
				parsed.FromCurrency, parsed.ToCurrency, result.Error),
			Error: datatypes.ErrorDetail{Code: datatypes.ErrCodeMCPError, Message: result.Error},
		}, nil
	}

	return formatConversion(s.now(), parsed.FromCurrency, parsed.ToCurrency, amount, result.DataMap()), nil, nil
}

// =============================================================================
// Cache-Then-Upstream Sequence
// =============================================================================

// fetchSource tells handlers where fetch's payload came from.
type fetchSource int

const (
	sourceFresh    fetchSource = iota // fresh cache hit
	sourceUpstream                    // live upstream response, just cached
	sourceStale                       // stale entry served after upstream failure
)

// fetch runs the shared cache-then-upstream sequence for one query.
//
// # Description
//
// Fresh cache hit returns immediately. Otherwise the upstream tool is
// called; on success the payload is stored and returned, on failure a stale
// cache entry is served if one exists, and only when nothing is cached does
// upstreamErr come back non-empty. A non-nil err is reserved for store
// failures.
//
// Concurrent requests for the same cache slot share a single upstream call
// via singleflight; the winner stores the payload and every waiter formats
// the same bytes.
func (s *Service) fetch(
	ctx context.Context,
	queryType string,
	params map[string]any,
	tool string,
	call func(context.Context) *upstream.ToolResult,
) (data map[string]any, source fetchSource, upstreamErr string, err error) {
	lookup, err := s.cache.Lookup(queryType, params)
	if err != nil {
		return nil, sourceFresh, "", err
	}
	recordCacheLookup(queryType, lookup.State)

	if lookup.State == cache.StateFresh {
		return payloadMap(lookup.Payload), sourceFresh, "", nil
	}

	key, err := cache.Key(queryType, params)
	if err != nil {
		return nil, sourceFresh, "", err
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		result := call(ctx)
		recordUpstreamCall(tool, result)
		if result.Success {
			if storeErr := s.cache.Store(queryType, params, result.Data); storeErr != nil {
				return nil, storeErr
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, sourceFresh, "", err
	}
	result := v.(*upstream.ToolResult)

	if !result.Success {
		if lookup.State == cache.StateStale {
			return payloadMap(lookup.Payload), sourceStale, "", nil
		}
		return nil, sourceFresh, result.Error, nil
	}

	return result.DataMap(), sourceUpstream, "", nil
}

// payloadMap decodes a cached payload as a JSON object. Mirrors
// ToolResult.DataMap: nil when the payload is absent or not an object.
func payloadMap(payload json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil
	}
	return m
}

// errorEnvelope builds a plain failure envelope.
func errorEnvelope(code datatypes.ErrorCode, answer, message string) *datatypes.ErrorEnvelope {
	return &datatypes.ErrorEnvelope{
		Answer: answer,
		Error:  datatypes.ErrorDetail{Code: code, Message: message},
	}
}

// =============================================================================
// Metrics
// =============================================================================

func recordTurn(intent interpret.Intent, success bool, seconds float64) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(string(intent), success)
		m.RecordRequestDuration(string(intent), seconds)
	}
}

func recordError(code datatypes.ErrorCode) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(string(code))
	}
}

func recordCacheLookup(queryType string, state cache.State) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordCacheLookup(queryType, string(state))
	}
}

func recordUpstreamCall(tool string, result *upstream.ToolResult) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordUpstreamCall(tool, result.Success, result.ResponseTimeMS/1000)
	}
}
