// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the market gateway.
//
// This package contains middleware for request timing, cross-origin
// access, and panic recovery. All are applied globally in main before
// routes are registered.
//
// # Request Timing
//
// The timing middleware stamps every response with an X-Process-Time-Ms
// header and logs the total request duration:
//
//	Request
//	   │
//	   ▼
//	Timing (swaps in a wrapping gin.ResponseWriter)
//	   │
//	   ├─► handler chain runs
//	   │
//	   ├─► first write: X-Process-Time-Ms injected into headers
//	   │
//	   └─► after chain: duration logged with endpoint and status
//
// The header must be injected before the status line is flushed, so the
// wrapper hooks every write path gin exposes (WriteHeader, WriteHeaderNow,
// Write, WriteString).
package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// =============================================================================
// Constants
// =============================================================================

// processTimeHeader is the response header carrying the processing time
// in milliseconds with two decimal places.
const processTimeHeader = "X-Process-Time-Ms"

// =============================================================================
// Timing Middleware
// =============================================================================

// Timing creates a Gin middleware that measures request processing time.
//
// # Description
//
// Wraps the response writer so that an X-Process-Time-Ms header is set
// just before the first byte of the response is written, then logs the
// total elapsed time once the handler chain completes.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
//
// # Examples
//
//	router := gin.Default()
//	router.Use(middleware.Timing())
//
// # Limitations
//
//   - The header value reflects time to first byte, not total time
//     (headers cannot be modified after the body starts streaming).
//     The logged duration covers the full handler chain.
//   - Responses that never write (rare with gin) carry no header.
//   - Hijacked connections (websocket upgrades) skip the header.
//
// # Thread Safety
//
// Thread-safe. Each request gets its own writer wrapper.
func Timing() gin.HandlerFunc {
	return func(c *gin.Context) {
		tw := &timingWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Writer = tw

		c.Next()

		elapsed := float64(time.Since(tw.start).Microseconds()) / 1000.0
		slog.Info("Response time",
			"endpoint", c.Request.URL.Path,
			"status", tw.Status(),
			"ms", strconv.FormatFloat(elapsed, 'f', 2, 64))
	}
}

// =============================================================================
// Response Writer Wrapper
// =============================================================================

// timingWriter wraps gin.ResponseWriter to inject the timing header at
// the last possible moment before the response is committed.
type timingWriter struct {
	gin.ResponseWriter
	start    time.Time
	injected bool
}

// WriteHeader records the status code and injects the timing header.
func (w *timingWriter) WriteHeader(code int) {
	w.inject()
	w.ResponseWriter.WriteHeader(code)
}

// WriteHeaderNow flushes the status line, injecting the header first.
func (w *timingWriter) WriteHeaderNow() {
	w.inject()
	w.ResponseWriter.WriteHeaderNow()
}

// Write writes body bytes, injecting the header before the first byte.
func (w *timingWriter) Write(b []byte) (int, error) {
	w.inject()
	return w.ResponseWriter.Write(b)
}

// WriteString writes a body string, injecting the header before it.
func (w *timingWriter) WriteString(s string) (int, error) {
	w.inject()
	return w.ResponseWriter.WriteString(s)
}

// inject sets X-Process-Time-Ms exactly once per request.
//
// Called from every write path. Safe to call after the response is
// committed because the first call always precedes the commit.
func (w *timingWriter) inject() {
	if w.injected {
		return
	}
	w.injected = true
	ms := float64(time.Since(w.start).Microseconds()) / 1000.0
	w.Header().Set(processTimeHeader, strconv.FormatFloat(ms, 'f', 2, 64))
}
