// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chat

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/upstream"
)

// =============================================================================
// User-Facing Strings
// =============================================================================

// Answers for error envelopes. These are full sentences shown to end users;
// the paired ErrorDetail carries the technical message.
const (
	answerSessionExpired  = "Your session has expired. Please create a new session to continue."
	answerSessionNotFound = "Session not found. Please create a new session."
	answerProcessing      = "Sorry, I encountered an error processing your request. Please try again."
	answerInternal        = "An unexpected error occurred. Please try again."

	answerNoSymbolPrice      = "I couldn't identify a trading symbol in your query. Please specify a symbol like 'gold', 'AAPL', or 'EUR/USD'."
	answerNoSymbolQuote      = "I couldn't identify a trading symbol. Please specify a symbol like 'AAPL' or 'EUR/USD'."
	answerNoSymbolHistorical = "Please specify a symbol to get historical data for."
	answerNoSymbolIndicator  = "Please specify a symbol to calculate the indicator for."
	answerNoIndicator        = "Please specify which indicator you want (e.g., RSI, SMA, MACD)."
	answerMissingCurrencies  = "Please specify both currencies for conversion (e.g., 'convert 100 USD to EUR')."

	msgNoSymbol          = "No trading symbol found in query"
	msgNoIndicator       = "No indicator specified in query"
	msgMissingCurrencies = "Need both source and target currencies"
)

// Warning prefixes for answers served without a live upstream response.
// The price handler carries the longer historical wording.
const (
	stalePricePrefix = "⚠️ Using cached data (may be stale): "
	staleDataPrefix  = "⚠️ Using cached data: "
	knownListPrefix  = "⚠️ Using known commodities list (upstream unavailable): "
)

// formattedTimeLayout renders "November 04, 2025 at 03:07 PM UTC".
const formattedTimeLayout = "January 02, 2006 at 03:04 PM UTC"

// maxSeriesPoints bounds the candle and indicator-value lists embedded in a
// response payload.
const maxSeriesPoints = 100

// =============================================================================
// Response Builders
// =============================================================================

// newChatResponse stamps the envelope fields shared by every response type.
func newChatResponse(now time.Time, answer, responseType string, data any) *datatypes.ChatResponse {
	now = now.UTC()
	return &datatypes.ChatResponse{
		Answer:        answer,
		Type:          responseType,
		Data:          data,
		Timestamp:     now.Format(time.RFC3339Nano),
		FormattedTime: now.Format(formattedTimeLayout),
	}
}

// formatPrice builds the "price" response from an upstream or cached payload.
func formatPrice(now time.Time, symbol string, data map[string]any) *datatypes.ChatResponse {
	var price float64
	if p := upstream.Float(data, "price"); p != nil {
		price = *p
	}
	change := upstream.Float(data, "change_percent")

	var answer string
	if change != nil {
		direction := "down"
		if *change > 0 {
			direction = "up"
		}
		answer = fmt.Sprintf("The current price of %s is $%.2f, %s %.2f%% today.",
			symbol, price, direction, math.Abs(*change))
	} else {
		answer = fmt.Sprintf("The current price of %s is $%.2f.", symbol, price)
	}

	return newChatResponse(now, answer, "price", datatypes.PriceData{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: change,
	})
}

// formatQuote builds the "quote" response. Volume and change clauses appear
// only when the payload carries them.
func formatQuote(now time.Time, symbol string, data map[string]any) *datatypes.ChatResponse {
	quote := datatypes.QuoteData{
		Symbol:           symbol,
		Open:             floatOrZero(data, "open"),
		High:             floatOrZero(data, "high"),
		Low:              floatOrZero(data, "low"),
		Close:            floatOrZero(data, "close"),
		Volume:           upstream.Int(data, "volume"),
		ChangePercent:    upstream.Float(data, "change_percent"),
		FiftyTwoWeekHigh: upstream.Float(data, "fifty_two_week_high"),
		FiftyTwoWeekLow:  upstream.Float(data, "fifty_two_week_low"),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's the detailed quote for %s: Open: $%.2f, High: $%.2f, Low: $%.2f, Close: $%.2f",
		symbol, quote.Open, quote.High, quote.Low, quote.Close)
	if quote.Volume != nil {
		fmt.Fprintf(&b, ", Volume: %s", humanize.Comma(*quote.Volume))
	}
	if quote.ChangePercent != nil {
		fmt.Fprintf(&b, ", Change: %.2f%%", *quote.ChangePercent)
	}

	return newChatResponse(now, b.String(), "quote", quote)
}

// formatHistorical builds the "historical" response. The embedded candle
// list is capped; the answer reports the capped count.
func formatHistorical(now time.Time, symbol, interval string, data map[string]any) *datatypes.ChatResponse {
	values := upstream.List(data, "candles")
	if len(values) > maxSeriesPoints {
		values = values[:maxSeriesPoints]
	}

	candles := make([]datatypes.CandleData, 0, len(values))
	for _, v := range values {
		row, _ := v.(map[string]any)
		candles = append(candles, datatypes.CandleData{
			Datetime: upstream.String(row, "datetime"),
			Open:     floatOrZero(row, "open"),
			High:     floatOrZero(row, "high"),
			Low:      floatOrZero(row, "low"),
			Close:    floatOrZero(row, "close"),
			Volume:   upstream.Int(row, "volume"),
		})
	}

	answer := fmt.Sprintf("Here's the %s historical data for %s. I found %d candles.",
		interval, symbol, len(candles))

	return newChatResponse(now, answer, "historical", datatypes.HistoricalData{
		Symbol:   symbol,
		Interval: interval,
		Candles:  candles,
	})
}

// formatIndicator builds the "indicator" response. The answer reports the
// full series length; only the embedded value list is capped.
func formatIndicator(now time.Time, symbol, indicator string, period int, data map[string]any) *datatypes.ChatResponse {
	values := upstream.List(data, "indicator_values")

	name := strings.ToUpper(indicator)
	answer := fmt.Sprintf("Here's the %s(%d) for %s. I calculated %d data points.",
		name, period, symbol, len(values))

	if len(values) > maxSeriesPoints {
		values = values[:maxSeriesPoints]
	}

	return newChatResponse(now, answer, "indicator", datatypes.IndicatorData{
		Symbol:    symbol,
		Indicator: name,
		Period:    period,
		Values:    values,
	})
}

// formatConversion builds the "conversion" response. A missing rate means
// the upstream answered with the result only; it defaults to 1.0 and the
// result falls back to amount * rate.
func formatConversion(now time.Time, from, to string, amount float64, data map[string]any) *datatypes.ChatResponse {
	rate := 1.0
	if r := upstream.Float(data, "rate"); r != nil {
		rate = *r
	}
	result := amount * rate
	if v := upstream.Float(data, "result"); v != nil {
		result = *v
	}

	answer := fmt.Sprintf("%.2f %s equals %.2f %s (rate: %.4f).", amount, from, result, to, rate)

	return newChatResponse(now, answer, "conversion", datatypes.ConversionData{
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       amount,
		Result:       result,
		Rate:         rate,
	})
}

// formatCommodities builds the commodities listing response. The payload
// rides the "quote" response type.
func formatCommodities(now time.Time, items []any) *datatypes.ChatResponse {
	answer := "Here are the available commodities: " + formatCommoditiesList(items)
	return newChatResponse(now, answer, "quote", map[string]any{"commodities": items})
}

// formatCommoditiesList renders commodity items for display. Items are
// usually {symbol, name} objects but bare strings pass through as-is.
func formatCommoditiesList(items []any) string {
	if len(items) == 0 {
		return "No commodities available"
	}

	formatted := make([]string, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			formatted = append(formatted, fmt.Sprint(item))
			continue
		}
		name, _ := entry["name"].(string)
		symbol, _ := entry["symbol"].(string)
		switch {
		case name != "" && symbol != "":
			formatted = append(formatted, fmt.Sprintf("%s (%s)", name, symbol))
		case symbol != "":
			formatted = append(formatted, symbol)
		case name != "":
			formatted = append(formatted, name)
		}
	}

	if len(formatted) == 0 {
		return "No commodities available"
	}
	return strings.Join(formatted, ", ")
}

// floatOrZero reads a numeric field through the alias table, defaulting to
// zero when absent.
func floatOrZero(data map[string]any, name string) float64 {
	if v := upstream.Float(data, name); v != nil {
		return *v
	}
	return 0
}
