// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

func performRecoveredRequest(t *testing.T, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	router.Use(Recovery())
	router.GET("/probe", handler)

	req, err := http.NewRequest(http.MethodGet, "/probe", nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecoveryConvertsPanicToEnvelope(t *testing.T) {
	w := performRecoveredRequest(t, func(c *gin.Context) {
		panic("handler exploded")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var env datatypes.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, datatypes.ErrCodeInternalError, env.Error.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.Equal(t, "An unexpected error occurred. Please try again.", env.Answer)
}

func TestRecoveryHandlesErrorValues(t *testing.T) {
	w := performRecoveredRequest(t, func(c *gin.Context) {
		panic(errors.New("boom"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var env datatypes.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, datatypes.ErrCodeInternalError, env.Error.Code)
}

func TestRecoveryPassthrough(t *testing.T) {
	w := performRecoveredRequest(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}
