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

import "context"

// Canonical tool names on the upstream server.
const (
	ToolGetPrice           = "twelvedata_get_price"
	ToolGetQuote           = "twelvedata_get_quote"
	ToolGetTimeSeries      = "twelvedata_get_time_series"
	ToolGetExchangeRate    = "twelvedata_get_exchange_rate"
	ToolConvertCurrency    = "twelvedata_convert_currency"
	ToolListCommodities    = "twelvedata_list_commodities"
	ToolTechnicalIndicator = "twelvedata_technical_indicator"
)

// TimeSeriesQuery parameterizes one candle fetch. StartDate and EndDate are
// optional and omitted from the call when empty.
type TimeSeriesQuery struct {
	Symbol     string
	Interval   string
	OutputSize int
	StartDate  string
	EndDate    string
}

// IndicatorQuery parameterizes one technical-indicator calculation.
type IndicatorQuery struct {
	Symbol     string
	Indicator  string
	Interval   string
	TimePeriod int
	OutputSize int
}

// GetPrice fetches the real-time price for a symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) *ToolResult {
	return c.CallTool(ctx, ToolGetPrice, map[string]any{
		"symbol":          symbol,
		"response_format": "json",
	})
}

// GetQuote fetches the detailed quote (OHLC, volume, 52-week range) for a
// symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) *ToolResult {
	return c.CallTool(ctx, ToolGetQuote, map[string]any{
		"symbol":          symbol,
		"response_format": "json",
	})
}

// GetTimeSeries fetches historical OHLC candles.
func (c *Client) GetTimeSeries(ctx context.Context, q TimeSeriesQuery) *ToolResult {
	args := map[string]any{
		"symbol":          q.Symbol,
		"interval":        q.Interval,
		"outputsize":      q.OutputSize,
		"response_format": "json",
	}
	if q.StartDate != "" {
		args["start_date"] = q.StartDate
	}
	if q.EndDate != "" {
		args["end_date"] = q.EndDate
	}
	return c.CallTool(ctx, ToolGetTimeSeries, args)
}

// GetExchangeRate fetches the current rate for a currency pair symbol such
// as "EUR/USD".
func (c *Client) GetExchangeRate(ctx context.Context, symbol string) *ToolResult {
	return c.CallTool(ctx, ToolGetExchangeRate, map[string]any{
		"symbol":          symbol,
		"response_format": "json",
	})
}

// ConvertCurrency converts amount between two currency codes.
func (c *Client) ConvertCurrency(ctx context.Context, from, to string, amount float64) *ToolResult {
	return c.CallTool(ctx, ToolConvertCurrency, map[string]any{
		"from":            from,
		"to":              to,
		"amount":          amount,
		"response_format": "json",
	})
}

// ListCommodities fetches the commodity catalog.
func (c *Client) ListCommodities(ctx context.Context) *ToolResult {
	return c.CallTool(ctx, ToolListCommodities, map[string]any{
		"response_format": "json",
	})
}

// TechnicalIndicator calculates an indicator series for a symbol.
func (c *Client) TechnicalIndicator(ctx context.Context, q IndicatorQuery) *ToolResult {
	return c.CallTool(ctx, ToolTechnicalIndicator, map[string]any{
		"symbol":          q.Symbol,
		"indicator":       q.Indicator,
		"interval":        q.Interval,
		"time_period":     q.TimePeriod,
		"outputsize":      q.OutputSize,
		"response_format": "json",
	})
}
