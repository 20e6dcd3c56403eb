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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/awnumar/memguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcSuccess(data string) string {
	return `{"jsonrpc":"2.0","id":1,"result":{"structuredContent":` + data + `}}`
}

func TestCallToolSendsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mcp", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json, text/event-stream", r.Header.Get("Accept"))

		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, 1, req.ID)
		assert.Equal(t, "tools/call", req.Method)
		assert.Equal(t, "twelvedata_get_price", req.Params["name"])

		args, ok := req.Params["arguments"].(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "AAPL", args["symbol"])
		assert.Equal(t, "json", args["response_format"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(rpcSuccess(`{"price":"189.95"}`)))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	result := client.GetPrice(context.Background(), "AAPL")

	require.True(t, result.Success, "error: %s", result.Error)
	assert.JSONEq(t, `{"price":"189.95"}`, string(result.Data))
	assert.GreaterOrEqual(t, result.ResponseTimeMS, 0.0)
}

func TestCallToolServerStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	result := client.GetPrice(context.Background(), "AAPL")

	assert.False(t, result.Success)
	assert.Equal(t, "upstream returned status 503", result.Error)
	assert.Nil(t, result.Data)
}

func TestCallToolRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid symbol"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	result := client.GetQuote(context.Background(), "????")

	assert.False(t, result.Success)
	assert.Equal(t, "invalid symbol", result.Error)
}

func TestCallToolTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(rpcSuccess(`{}`)))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	result := client.GetPrice(context.Background(), "AAPL")

	assert.False(t, result.Success)
	assert.Equal(t, "upstream request timed out", result.Error)
}

func TestCallToolConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: url})
	result := client.GetPrice(context.Background(), "AAPL")

	assert.False(t, result.Success)
	assert.Equal(t, "Failed to connect to upstream", result.Error)
}

func TestCallToolBearerHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(rpcSuccess(`{}`)))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  memguard.NewEnclave([]byte("test-key-123")),
	})
	result := client.GetPrice(context.Background(), "AAPL")

	assert.True(t, result.Success, "error: %s", result.Error)
}

func TestListToolsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tools/list", req.Method)
		assert.Empty(t, req.Params)

		_, _ = w.Write([]byte(rpcSuccess(`{"tools":[{"name":"twelvedata_get_price"}]}`)))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	result := client.ListTools(context.Background())

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Contains(t, string(result.Data), "twelvedata_get_price")
}

// captureArgsServer records the tool arguments of each request and replies
// with the given structured content.
func captureArgsServer(t *testing.T, structured string) (*httptest.Server, chan map[string]any) {
	t.Helper()

	argsCh := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		args, _ := req.Params["arguments"].(map[string]any)
		argsCh <- args
		_, _ = w.Write([]byte(rpcSuccess(structured)))
	}))
	t.Cleanup(server.Close)
	return server, argsCh
}

func TestGetTimeSeriesArguments(t *testing.T) {
	server, argsCh := captureArgsServer(t, `{"values":[]}`)

	client := NewClient(Config{BaseURL: server.URL})
	result := client.GetTimeSeries(context.Background(), TimeSeriesQuery{
		Symbol:     "EUR/USD",
		Interval:   "1h",
		OutputSize: 50,
	})

	require.True(t, result.Success, "error: %s", result.Error)
	gotArgs := <-argsCh
	assert.Equal(t, "EUR/USD", gotArgs["symbol"])
	assert.Equal(t, "1h", gotArgs["interval"])
	assert.Equal(t, float64(50), gotArgs["outputsize"])
	assert.NotContains(t, gotArgs, "start_date")
	assert.NotContains(t, gotArgs, "end_date")
}

func TestGetTimeSeriesIncludesDateRange(t *testing.T) {
	server, argsCh := captureArgsServer(t, `{"values":[]}`)

	client := NewClient(Config{BaseURL: server.URL})
	client.GetTimeSeries(context.Background(), TimeSeriesQuery{
		Symbol:     "AAPL",
		Interval:   "1day",
		OutputSize: 30,
		StartDate:  "2025-01-01",
		EndDate:    "2025-02-01",
	})

	gotArgs := <-argsCh
	assert.Equal(t, "2025-01-01", gotArgs["start_date"])
	assert.Equal(t, "2025-02-01", gotArgs["end_date"])
}

func TestTechnicalIndicatorArguments(t *testing.T) {
	server, argsCh := captureArgsServer(t, `{"values":[]}`)

	client := NewClient(Config{BaseURL: server.URL})
	client.TechnicalIndicator(context.Background(), IndicatorQuery{
		Symbol:     "XAU/USD",
		Indicator:  "rsi",
		Interval:   "1day",
		TimePeriod: 14,
		OutputSize: 30,
	})

	gotArgs := <-argsCh
	assert.Equal(t, "XAU/USD", gotArgs["symbol"])
	assert.Equal(t, "rsi", gotArgs["indicator"])
	assert.Equal(t, float64(14), gotArgs["time_period"])
}

func TestConvertCurrencyArguments(t *testing.T) {
	server, argsCh := captureArgsServer(t, `{"rate":0.92,"result":92.0}`)

	client := NewClient(Config{BaseURL: server.URL})
	result := client.ConvertCurrency(context.Background(), "USD", "EUR", 100)

	require.True(t, result.Success, "error: %s", result.Error)
	gotArgs := <-argsCh
	assert.Equal(t, "USD", gotArgs["from"])
	assert.Equal(t, "EUR", gotArgs["to"])
	assert.Equal(t, float64(100), gotArgs["amount"])
}

func TestHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	assert.True(t, NewClient(Config{BaseURL: healthy.URL}).HealthCheck(context.Background()))

	sick := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer sick.Close()

	assert.False(t, NewClient(Config{BaseURL: sick.URL}).HealthCheck(context.Background()))

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	goneURL := gone.URL
	gone.Close()

	assert.False(t, NewClient(Config{BaseURL: goneURL}).HealthCheck(context.Background()))
}

func TestDataMapAndDataList(t *testing.T) {
	object := &ToolResult{Data: json.RawMessage(`{"price":1.5}`)}
	assert.Equal(t, map[string]any{"price": 1.5}, object.DataMap())
	assert.Nil(t, object.DataList())

	list := &ToolResult{Data: json.RawMessage(`[{"symbol":"XAU/USD"}]`)}
	assert.Nil(t, list.DataMap())
	assert.Len(t, list.DataList(), 1)

	empty := &ToolResult{}
	assert.Nil(t, empty.DataMap())
	assert.Nil(t, empty.DataList())
}
