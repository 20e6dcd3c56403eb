// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpret

import (
	"regexp"
	"strconv"
	"strings"
)

// indicatorTable maps spoken indicator names onto upstream indicator codes.
// Order matters: the first phrase found in the query wins, and longer
// phrases that embed shorter ones ("momentum" vs "mom") rely on their
// position here.
var indicatorTable = []phraseSymbol{
	{"sma", "sma"},
	{"simple moving average", "sma"},
	{"moving average", "sma"}, // generic "moving average" defaults to SMA
	{"ema", "ema"},
	{"exponential moving average", "ema"},
	{"rsi", "rsi"},
	{"relative strength index", "rsi"},
	{"macd", "macd"},
	{"moving average convergence divergence", "macd"},
	{"bollinger bands", "bbands"},
	{"bbands", "bbands"},
	{"stochastic", "stoch"},
	{"stoch", "stoch"},
	{"adx", "adx"},
	{"average directional index", "adx"},
	{"atr", "atr"},
	{"average true range", "atr"},
	{"cci", "cci"},
	{"commodity channel index", "cci"},
	{"obv", "obv"},
	{"on balance volume", "obv"},
	{"momentum", "mom"},
	{"mom", "mom"},
	{"roc", "roc"},
	{"rate of change", "roc"},
	{"williams %r", "willr"},
	{"willr", "willr"},
}

// intervalTable maps spoken intervals onto upstream interval codes. Matching
// is substring-based in table order, so an embedded phrase like "5 minute"
// inside "15 minute" resolves to the earlier entry.
var intervalTable = []phraseSymbol{
	{"1 minute", "1min"},
	{"1min", "1min"},
	{"5 minute", "5min"},
	{"5min", "5min"},
	{"15 minute", "15min"},
	{"15min", "15min"},
	{"30 minute", "30min"},
	{"30min", "30min"},
	{"1 hour", "1h"},
	{"1h", "1h"},
	{"hourly", "1h"},
	{"4 hour", "4h"},
	{"4h", "4h"},
	{"daily", "1day"},
	{"1 day", "1day"},
	{"1day", "1day"},
	{"day", "1day"},
	{"weekly", "1week"},
	{"1 week", "1week"},
	{"1week", "1week"},
	{"week", "1week"},
	{"monthly", "1month"},
	{"1 month", "1month"},
	{"1month", "1month"},
	{"month", "1month"},
}

// extractInterval returns the first interval phrase found, or "".
func extractInterval(lower string) string {
	for _, entry := range intervalTable {
		if strings.Contains(lower, entry.phrase) {
			return entry.symbol
		}
	}
	return ""
}

// extractIndicator returns the first indicator phrase found, or "".
func extractIndicator(lower string) string {
	for _, entry := range indicatorTable {
		if strings.Contains(lower, entry.phrase) {
			return entry.symbol
		}
	}
	return ""
}

// timePeriodPatterns catch "14 period", "20-day", "period of 9" and
// "20 day sma" style spans. The first pattern to match wins.
var timePeriodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)[\s-]*(?:period|day|days)`),
	regexp.MustCompile(`period\s*of\s*(\d+)`),
	regexp.MustCompile(`(\d+)[\s-]*(?:day|week)\s*(?:sma|ema|rsi|macd)`),
}

// extractTimePeriod returns the indicator lookback from the query, or 0.
func extractTimePeriod(lower string) int {
	for _, pattern := range timePeriodPatterns {
		if match := pattern.FindStringSubmatch(lower); match != nil {
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			return n
		}
	}
	return 0
}

// outputSizePatterns catch "last 30 days", "50 candles of" style counts.
var outputSizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`last\s*(\d+)\s*(?:days?|weeks?|candles?|points?|bars?)`),
	regexp.MustCompile(`(\d+)\s*(?:days?|weeks?|candles?|points?|bars?)\s*of`),
}

// extractOutputSize returns the requested number of data points capped at
// maxOutputSize, or 0 when the query names none.
func extractOutputSize(lower string) int {
	for _, pattern := range outputSizePatterns {
		if match := pattern.FindStringSubmatch(lower); match != nil {
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if n > maxOutputSize {
				return maxOutputSize
			}
			return n
		}
	}
	return 0
}

// currencyWords resolves spoken currency names; trailing plural "s" is
// stripped before lookup.
var currencyWords = map[string]string{
	"dollar": "USD", "usd": "USD",
	"euro": "EUR", "eur": "EUR",
	"pound": "GBP", "gbp": "GBP",
	"yen": "JPY", "jpy": "JPY",
	"franc": "CHF", "chf": "CHF",
}

var (
	amountPattern       = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	currencyCodePattern = regexp.MustCompile(`\b(USD|EUR|GBP|JPY|CHF|AUD|CAD|NZD)\b`)
)

// extractConversion pulls the (from, to, amount) conversion tuple.
//
// # Description
//
// The first numeric literal is the amount. Currencies come from the spoken
// word map in occurrence order (first hit = from, later hits = to); when
// the uppercase code regex finds two or more explicit codes those override
// the word-map result entirely.
func extractConversion(query string) (fromCurrency, toCurrency string, amount *float64) {
	lower := strings.ToLower(query)

	if match := amountPattern.FindStringSubmatch(lower); match != nil {
		if v, err := strconv.ParseFloat(match[1], 64); err == nil {
			amount = &v
		}
	}

	for _, word := range strings.Fields(lower) {
		if code, ok := currencyWords[strings.TrimRight(word, "s")]; ok {
			if fromCurrency == "" {
				fromCurrency = code
			} else {
				toCurrency = code
			}
		}
	}

	codes := currencyCodePattern.FindAllString(strings.ToUpper(query), -1)
	if len(codes) >= 2 {
		fromCurrency = codes[0]
		toCurrency = codes[1]
	} else if len(codes) == 1 && fromCurrency == "" {
		fromCurrency = codes[0]
	}

	return fromCurrency, toCurrency, amount
}
