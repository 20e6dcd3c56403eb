// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatWalksAliasChain(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want float64
	}{
		{"primary key", map[string]any{"price": 2412.5}, 2412.5},
		{"close alias", map[string]any{"close": 189.95}, 189.95},
		{"last alias", map[string]any{"last": 1.0834}, 1.0834},
		{"numeric string", map[string]any{"price": "2412.50"}, 2412.5},
		{"zero falls through", map[string]any{"price": 0.0, "close": 5.0}, 5},
		{"empty string falls through", map[string]any{"price": "", "last": "3.14"}, 3.14},
		{"unparsable falls through", map[string]any{"price": "n/a", "close": 7.0}, 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Float(tc.data, "price")
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestFloatMissingEverywhere(t *testing.T) {
	assert.Nil(t, Float(map[string]any{"symbol": "AAPL"}, "price"))
	assert.Nil(t, Float(map[string]any{"price": 0.0}, "price"))
	assert.Nil(t, Float(map[string]any{"price": "zero"}, "price"))
	assert.Nil(t, Float(nil, "price"))
}

func TestFloatKeepsNegativeValues(t *testing.T) {
	got := Float(map[string]any{"change": -1.57}, "change_percent")
	require.NotNil(t, got)
	assert.Equal(t, -1.57, *got)
}

func TestFloatFiftyTwoWeekAliases(t *testing.T) {
	data := map[string]any{"52_week_high": "199.62", "fifty_two_week_low": 124.17}

	high := Float(data, "fifty_two_week_high")
	require.NotNil(t, high)
	assert.Equal(t, 199.62, *high)

	low := Float(data, "fifty_two_week_low")
	require.NotNil(t, low)
	assert.Equal(t, 124.17, *low)
}

func TestFloatUnknownNameUsesItself(t *testing.T) {
	got := Float(map[string]any{"spread": 0.02}, "spread")
	require.NotNil(t, got)
	assert.Equal(t, 0.02, *got)
}

func TestIntTruncatesAndCoerces(t *testing.T) {
	got := Int(map[string]any{"volume": "52875300"}, "volume")
	require.NotNil(t, got)
	assert.Equal(t, int64(52875300), *got)

	got = Int(map[string]any{"volume": 1234.9}, "volume")
	require.NotNil(t, got)
	assert.Equal(t, int64(1234), *got)

	assert.Nil(t, Int(map[string]any{}, "volume"))
	assert.Nil(t, Int(map[string]any{"volume": 0.0}, "volume"))
}

func TestListWalksAliasChain(t *testing.T) {
	candles := []any{map[string]any{"close": 1.0}}

	assert.Equal(t, candles, List(map[string]any{"values": candles}, "candles"))
	assert.Equal(t, candles, List(map[string]any{"candles": candles}, "candles"))
	assert.Equal(t, candles, List(map[string]any{"data": candles}, "candles"))

	// Empty arrays fall through like zero scalars.
	assert.Equal(t, candles, List(map[string]any{"values": []any{}, "data": candles}, "candles"))

	assert.Nil(t, List(map[string]any{"values": "not a list"}, "candles"))
	assert.Nil(t, List(map[string]any{}, "candles"))
}

func TestListIndicatorChainSkipsCandlesKey(t *testing.T) {
	points := []any{map[string]any{"rsi": 61.2}}

	assert.Equal(t, points, List(map[string]any{"data": points}, "indicator_values"))
	assert.Nil(t, List(map[string]any{"candles": points}, "indicator_values"))
}

func TestStringSkipsEmpty(t *testing.T) {
	assert.Equal(t, "2025-11-04", String(map[string]any{"datetime": "2025-11-04"}, "datetime"))
	assert.Equal(t, "", String(map[string]any{"datetime": ""}, "datetime"))
	assert.Equal(t, "", String(map[string]any{"datetime": 42.0}, "datetime"))
}
