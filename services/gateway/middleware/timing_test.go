// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// twoDecimalMs matches values like "0.05" or "123.40".
var twoDecimalMs = regexp.MustCompile(`^\d+\.\d{2}$`)

func performTimedRequest(t *testing.T, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	router.Use(Timing())
	router.GET("/probe", handler)

	req, err := http.NewRequest(http.MethodGet, "/probe", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTimingSetsHeader(t *testing.T) {
	w := performTimedRequest(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, w.Code)

	got := w.Header().Get("X-Process-Time-Ms")
	require.NotEmpty(t, got, "timing header missing")
	assert.Regexp(t, twoDecimalMs, got)

	ms, err := strconv.ParseFloat(got, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ms, 0.0)
}

func TestTimingHeaderOnErrorStatus(t *testing.T) {
	w := performTimedRequest(t, func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Regexp(t, twoDecimalMs, w.Header().Get("X-Process-Time-Ms"))
}

// Aborting without a body flushes the status line through WriteHeaderNow,
// which must still pick up the header.
func TestTimingHeaderOnAbort(t *testing.T) {
	w := performTimedRequest(t, func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Regexp(t, twoDecimalMs, w.Header().Get("X-Process-Time-Ms"))
}

func TestTimingHeaderOnRawWrite(t *testing.T) {
	w := performTimedRequest(t, func(c *gin.Context) {
		c.Writer.WriteHeader(http.StatusOK)
		_, _ = c.Writer.WriteString("streamed bytes")
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "streamed bytes", w.Body.String())
	assert.Regexp(t, twoDecimalMs, w.Header().Get("X-Process-Time-Ms"))
}
