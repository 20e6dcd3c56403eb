// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/cache"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/session"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/storage"
)

func newCacheHarness(t *testing.T) (*cache.Cache, *gin.Engine) {
	t.Helper()

	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	marketCache := cache.New(store, cache.Policy{PriceSeconds: 45, HistoricalSeconds: 300, IndicatorSeconds: 300})

	router := gin.New()
	router.GET("/v1/cache/stats", HandleCacheStats(marketCache))
	router.DELETE("/v1/cache", HandleClearCache(marketCache))
	return marketCache, router
}

func TestHandleCacheStats(t *testing.T) {
	marketCache, router := newCacheHarness(t)

	require.NoError(t, marketCache.Store("price",
		map[string]any{"symbol": "XAU/USD"}, json.RawMessage(`{"price": 2345.67}`)))
	require.NoError(t, marketCache.Store("historical",
		map[string]any{"symbol": "AAPL", "interval": "1day"}, json.RawMessage(`{"values": []}`)))

	w := performRequest(router, "GET", "/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats datatypes.CacheStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 0, stats.Expired)
	assert.Equal(t, 1, stats.ByType["price"])
	assert.Equal(t, 1, stats.ByType["historical"])
}

func TestHandleClearCache(t *testing.T) {
	marketCache, router := newCacheHarness(t)

	require.NoError(t, marketCache.Store("price",
		map[string]any{"symbol": "XAU/USD"}, json.RawMessage(`{"price": 2345.67}`)))
	require.NoError(t, marketCache.Store("price",
		map[string]any{"symbol": "BTC/USD"}, json.RawMessage(`{"price": 69000.5}`)))

	w := performRequest(router, "DELETE", "/v1/cache", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["cleared"])

	w = performRequest(router, "GET", "/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats datatypes.CacheStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Total)
}

func TestHandleBackup(t *testing.T) {
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	gate := session.NewGate(store, time.Hour, time.Minute)
	_, err = gate.Create("trader-7", nil)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/v1/admin/backup", HandleBackup(store))

	w := performRequest(router, "GET", "/v1/admin/backup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, w.Body.Len(), "backup of a non-empty store must carry data")
}

func TestHandleBackup_RejectsBadSince(t *testing.T) {
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	router := gin.New()
	router.GET("/v1/admin/backup", HandleBackup(store))

	req, _ := http.NewRequest(http.MethodGet, "/v1/admin/backup?since=yesterday", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
