// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package interpret turns natural-language market questions into structured
// queries. Parsing is rule-based and pure: fixed phrase tables, a handful of
// regexes, no I/O, no model calls. Deterministic interpretation covers the
// formulaic majority of inputs; anything it cannot resolve surfaces as a
// missing-entity error upstream rather than a guess.
package interpret

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentPrice           Intent = "price"
	IntentQuote           Intent = "quote"
	IntentHistorical      Intent = "historical"
	IntentIndicator       Intent = "indicator"
	IntentConversion      Intent = "conversion"
	IntentComparison      Intent = "comparison"
	IntentCommoditiesList Intent = "commodities_list"
	IntentUnknown         Intent = "unknown"
)

// Entity defaults applied when extraction finds nothing.
const (
	defaultInterval   = "1day"
	defaultTimePeriod = 14
	defaultOutputSize = 30
	maxOutputSize     = 5000
)

// ParsedQuery is the structured result of interpreting one query.
//
// # Description
//
// Intent is always set. Symbols may be empty; the orchestrator converts an
// empty list into a user-facing error for intents that need one. Interval,
// TimePeriod and OutputSize carry their defaults when the query does not
// mention them. Indicator and the conversion fields are empty/nil when the
// query does not contain them.
type ParsedQuery struct {
	Intent       Intent
	Symbols      []string
	Interval     string
	Indicator    string
	TimePeriod   int
	OutputSize   int
	FromCurrency string
	ToCurrency   string
	Amount       *float64
	RawQuery     string
}

// Parse interprets a natural-language query.
//
// # Description
//
// Classification and extraction are case-insensitive and run over fixed
// tables in a fixed order, so identical input always yields an identical
// result. When the query holds no symbol of its own, prior turns are
// consulted for follow-up references ("its RSI?", "what about that?") and
// the most recent turn with symbols wins.
//
// # Inputs
//
//   - query: The user's query text, as received.
//   - context: Prior turns, oldest first. May be nil.
//
// # Outputs
//
//   - ParsedQuery: Structured interpretation with defaults applied.
func Parse(query string, context []datatypes.TurnContext) ParsedQuery {
	lower := strings.ToLower(query)

	intent := detectIntent(lower)
	symbols := extractSymbols(query)
	interval := extractInterval(lower)
	indicator := extractIndicator(lower)
	timePeriod := extractTimePeriod(lower)
	fromCurrency, toCurrency, amount := extractConversion(query)
	outputSize := extractOutputSize(lower)

	if len(symbols) == 0 && len(context) > 0 {
		symbols = symbolsFromContext(lower, context)
	}

	if interval == "" {
		interval = defaultInterval
	}
	if timePeriod == 0 {
		timePeriod = defaultTimePeriod
	}
	if outputSize == 0 {
		outputSize = defaultOutputSize
	}

	return ParsedQuery{
		Intent:       intent,
		Symbols:      symbols,
		Interval:     interval,
		Indicator:    indicator,
		TimePeriod:   timePeriod,
		OutputSize:   outputSize,
		FromCurrency: fromCurrency,
		ToCurrency:   toCurrency,
		Amount:       amount,
		RawQuery:     query,
	}
}

// commoditiesPhrases triggers the commodities listing.
var commoditiesPhrases = []string{
	"list commodities", "available commodities", "show commodities",
}

// conversionPhrases triggers currency conversion.
var conversionPhrases = []string{
	"convert", "exchange", "to usd", "to eur", "to gbp", "how much is",
}

// historicalPhrases triggers time-series retrieval.
var historicalPhrases = []string{
	"historical", "history", "past", "chart", "time series", "candles",
	"over time", "last week", "last month", "last year", "trend",
}

// quotePhrases triggers the detailed quote.
var quotePhrases = []string{
	"quote", "detailed", "52 week", "volume", "high low", "open close", "ohlc",
}

// comparisonPhrases triggers symbol comparison.
var comparisonPhrases = []string{
	"compare", "vs", "versus", "against", "difference between",
}

// lastNPattern catches "last 30 days" style ranges not covered by the fixed
// historical phrases.
var lastNPattern = regexp.MustCompile(`last\s+\d+\s+(?:days?|weeks?|months?|hours?)`)

// detectIntent classifies a lowercased query. The checks run in a fixed
// order and the first hit wins; a query matching nothing is a price query.
func detectIntent(lower string) Intent {
	if containsAny(lower, commoditiesPhrases) {
		return IntentCommoditiesList
	}
	if containsAny(lower, conversionPhrases) {
		return IntentConversion
	}
	for _, entry := range indicatorTable {
		if strings.Contains(lower, entry.phrase) {
			return IntentIndicator
		}
	}
	if containsAny(lower, historicalPhrases) || lastNPattern.MatchString(lower) {
		return IntentHistorical
	}
	if containsAny(lower, quotePhrases) {
		return IntentQuote
	}
	if containsAny(lower, comparisonPhrases) {
		return IntentComparison
	}
	return IntentPrice
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}
