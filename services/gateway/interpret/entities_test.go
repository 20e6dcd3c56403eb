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

import "testing"

func TestExtractInterval(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"daily", "daily chart for gold", "1day"},
		{"hourly", "show hourly data", "1h"},
		{"one hour spelled", "1 hour candles", "1h"},
		{"four hour", "4h chart", "4h"},
		{"weekly", "weekly trend", "1week"},
		{"monthly", "monthly view", "1month"},
		{"thirty minutes", "30 minute bars", "30min"},
		{"today matches day", "price today", "1day"},
		{"fifteen matches five first", "15min bars", "5min"},
		{"none", "give me the numbers", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractInterval(tc.query)
			if got != tc.want {
				t.Errorf("extractInterval(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}

func TestExtractIndicator(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"rsi", "rsi for apple", "rsi"},
		{"relative strength spelled", "relative strength index of tesla", "rsi"},
		{"generic moving average", "what's the moving average", "sma"},
		{"ema code", "20 day ema", "ema"},
		{"macd", "macd crossover", "macd"},
		{"bollinger", "bollinger bands for gold", "bbands"},
		{"stochastic", "stochastic for nvda", "stoch"},
		{"momentum before mom", "momentum of bitcoin", "mom"},
		{"williams", "williams %r for aapl", "willr"},
		{"rate of change", "rate of change for msft", "roc"},
		{"none", "price of gold", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractIndicator(tc.query)
			if got != tc.want {
				t.Errorf("extractIndicator(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}

func TestExtractTimePeriod(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"n period", "14 period rsi", 14},
		{"hyphenated days", "20-day sma", 20},
		{"period of n", "rsi with a period of 9", 9},
		{"n day", "50 day moving average", 50},
		{"last n days counts", "last 5 days", 5},
		{"absent", "rsi for apple", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractTimePeriod(tc.query)
			if got != tc.want {
				t.Errorf("extractTimePeriod(%q) = %d, want %d", tc.query, got, tc.want)
			}
		})
	}
}

func TestExtractOutputSize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"last n candles", "last 50 candles", 50},
		{"last n days", "last 100 days", 100},
		{"n points of", "200 points of data", 200},
		{"clamped to ceiling", "last 9999 bars", 5000},
		{"absent", "give me data", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractOutputSize(tc.query)
			if got != tc.want {
				t.Errorf("extractOutputSize(%q) = %d, want %d", tc.query, got, tc.want)
			}
		})
	}
}

func TestExtractConversion(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFrom   string
		wantTo     string
		wantAmount *float64
	}{
		{"codes", "convert 100 USD to EUR", "USD", "EUR", amountPtr(100)},
		{"currency words", "100 dollars to euros", "USD", "EUR", amountPtr(100)},
		{"plural words", "convert 2.5 pounds to yen", "GBP", "JPY", amountPtr(2.5)},
		{"codes outside word table", "convert 100 CAD to AUD", "CAD", "AUD", amountPtr(100)},
		{"single code fills from", "price in USD", "USD", "", nil},
		{"francs", "50 francs to dollars", "CHF", "USD", amountPtr(50)},
		{"nothing", "what is gold worth", "", "", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			from, to, amount := extractConversion(tc.query)
			if from != tc.wantFrom || to != tc.wantTo {
				t.Errorf("extractConversion(%q) = %q -> %q, want %q -> %q",
					tc.query, from, to, tc.wantFrom, tc.wantTo)
			}
			switch {
			case tc.wantAmount == nil && amount != nil:
				t.Errorf("extractConversion(%q) amount = %v, want nil", tc.query, *amount)
			case tc.wantAmount != nil && amount == nil:
				t.Errorf("extractConversion(%q) amount = nil, want %v", tc.query, *tc.wantAmount)
			case tc.wantAmount != nil && amount != nil && *amount != *tc.wantAmount:
				t.Errorf("extractConversion(%q) amount = %v, want %v", tc.query, *amount, *tc.wantAmount)
			}
		})
	}
}

func amountPtr(v float64) *float64 { return &v }
