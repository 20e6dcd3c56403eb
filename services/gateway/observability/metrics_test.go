// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ============================================================================
// Test Helper: Create isolated metrics for testing
// ============================================================================

// newTestMetrics creates a GatewayMetrics instance with a custom registry.
// This avoids conflicts with the global Prometheus registry and allows
// parallel testing.
func newTestMetrics(t *testing.T) *GatewayMetrics {
	t.Helper()

	reg := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "requests_total",
			Help:      "Total chat turns by intent and status",
		},
		[]string{"intent", "status"},
	)

	requestDurationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "request_duration_seconds",
			Help:      "End-to-end chat turn latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"intent"},
	)

	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "cache_lookups_total",
			Help:      "Total cache lookups by query type and state",
		},
		[]string{"query_type", "state"},
	)

	upstreamCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "upstream_calls_total",
			Help:      "Total upstream tool calls by tool and status",
		},
		[]string{"tool", "status"},
	)

	upstreamLatencySeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "upstream_latency_seconds",
			Help:      "Upstream tool call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "errors_total",
			Help:      "Total error envelopes by error code",
		},
		[]string{"code"},
	)

	// Register all metrics with the test registry
	reg.MustRegister(
		requestsTotal,
		requestDurationSeconds,
		cacheLookupsTotal,
		upstreamCallsTotal,
		upstreamLatencySeconds,
		errorsTotal,
	)

	return &GatewayMetrics{
		RequestsTotal:          requestsTotal,
		RequestDurationSeconds: requestDurationSeconds,
		CacheLookupsTotal:      cacheLookupsTotal,
		UpstreamCallsTotal:     upstreamCallsTotal,
		UpstreamLatencySeconds: upstreamLatencySeconds,
		ErrorsTotal:            errorsTotal,
	}
}

// ============================================================================
// InitMetrics Tests
// ============================================================================

// Note: InitMetrics uses promauto which registers with the default Prometheus
// registry. This test must only run once per test binary execution since
// duplicate registration will panic.
var initMetricsTestOnce bool

func TestInitMetrics(t *testing.T) {
	if initMetricsTestOnce {
		t.Skip("InitMetrics can only be called once per test run (promauto restriction)")
	}
	initMetricsTestOnce = true

	result := InitMetrics()

	if result == nil {
		t.Fatal("InitMetrics() returned nil")
	}
	if DefaultMetrics == nil {
		t.Fatal("DefaultMetrics should be set after InitMetrics()")
	}
	if DefaultMetrics != result {
		t.Error("DefaultMetrics should equal the returned value")
	}

	if result.RequestsTotal == nil {
		t.Error("RequestsTotal should not be nil")
	}
	if result.RequestDurationSeconds == nil {
		t.Error("RequestDurationSeconds should not be nil")
	}
	if result.CacheLookupsTotal == nil {
		t.Error("CacheLookupsTotal should not be nil")
	}
	if result.UpstreamCallsTotal == nil {
		t.Error("UpstreamCallsTotal should not be nil")
	}
	if result.UpstreamLatencySeconds == nil {
		t.Error("UpstreamLatencySeconds should not be nil")
	}
	if result.ErrorsTotal == nil {
		t.Error("ErrorsTotal should not be nil")
	}

	// Verify metrics can be used
	result.RecordRequest("price", true)
	result.RecordRequestDuration("price", 0.02)
	result.RecordCacheLookup("price", "fresh")
	result.RecordUpstreamCall("twelvedata_get_price", true, 0.3)
	result.RecordError("MCP_ERROR")
}

// ============================================================================
// Helper Method Tests
// ============================================================================

func TestRecordRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRequest("price", true)
	m.RecordRequest("price", true)
	m.RecordRequest("quote", false)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("price", "success")); got != 2 {
		t.Errorf("price/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("quote", "error")); got != 1 {
		t.Errorf("quote/error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("quote", "success")); got != 0 {
		t.Errorf("quote/success = %v, want 0", got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheLookup("price", "fresh")
	m.RecordCacheLookup("price", "miss")
	m.RecordCacheLookup("historical", "stale")

	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("price", "fresh")); got != 1 {
		t.Errorf("price/fresh = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("price", "miss")); got != 1 {
		t.Errorf("price/miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("historical", "stale")); got != 1 {
		t.Errorf("historical/stale = %v, want 1", got)
	}
}

func TestRecordUpstreamCall(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordUpstreamCall("twelvedata_get_price", true, 0.2)
	m.RecordUpstreamCall("twelvedata_get_price", false, 30.0)

	if got := testutil.ToFloat64(m.UpstreamCallsTotal.WithLabelValues("twelvedata_get_price", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UpstreamCallsTotal.WithLabelValues("twelvedata_get_price", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestRecordError(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordError("RATE_LIMITED")
	m.RecordError("RATE_LIMITED")
	m.RecordError("NO_SYMBOL")

	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("RATE_LIMITED")); got != 2 {
		t.Errorf("RATE_LIMITED = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("NO_SYMBOL")); got != 1 {
		t.Errorf("NO_SYMBOL = %v, want 1", got)
	}
}
