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
	"slices"
	"testing"
)

func TestExtractSymbols(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"metal by name", "What's the price of gold?", []string{"XAU/USD"}},
		{"metal inside a longer word", "golden cross on the chart", []string{"XAU/USD"}},
		{"silver", "silver quote", []string{"XAG/USD"}},
		{"platinum", "platinum price today", []string{"XPT/USD"}},
		{"crypto by name", "bitcoin price", []string{"BTC/USD"}},
		{"crypto by code", "how much is btc worth", []string{"BTC/USD"}},
		{"ethereum", "eth price", []string{"ETH/USD"}},
		{"company by name", "quote for apple", []string{"AAPL"}},
		{"company alias", "facebook stock price", []string{"META"}},
		{"two word company", "jp morgan quote", []string{"JPM"}},
		{"google alias", "alphabet stock", []string{"GOOGL"}},
		{"forex slashed", "EUR/USD price", []string{"EUR/USD"}},
		{"forex collapsed", "price of eurusd", []string{"EUR/USD"}},
		{"forex collapsed yen", "usdjpy chart", []string{"USD/JPY"}},
		{"whitelisted ticker", "price of AAPL", []string{"AAPL"}},
		{"whitelisted ticker lowercase", "price of aapl", []string{"AAPL"}},
		{"explicit pair only once", "price of XAU/USD", []string{"XAU/USD"}},
		{"accumulates across groups", "compare gold and bitcoin", []string{"XAU/USD", "BTC/USD"}},
		{"deduplicates", "gold vs gold", []string{"XAU/USD"}},
		{"fallback with market wording", "price of ZZZZ", []string{"ZZZZ"}},
		{"fallback takes first candidate only", "price of ABCD and EFGH", []string{"ABCD"}},
		{"fallback requires market wording", "tell me about ZZZZ", nil},
		{"no market content", "tell me a joke", nil},
		{"stop words never become tickers", "what is the price", nil},
		{"follow-up words never become tickers", "what about its rsi", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractSymbols(tc.query)
			if !slices.Equal(got, tc.want) {
				t.Errorf("extractSymbols(%q) = %v, want %v", tc.query, got, tc.want)
			}
		})
	}
}

func TestExtractSymbolsMixedQuery(t *testing.T) {
	got := extractSymbols("compare AAPL vs EUR/USD and bitcoin")

	// Groups run in a fixed order: names first, then pairs, then tickers.
	want := []string{"BTC/USD", "EUR/USD", "AAPL"}
	if !slices.Equal(got, want) {
		t.Errorf("symbols = %v, want %v", got, want)
	}
}
