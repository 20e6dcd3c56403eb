// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the market gateway.
//
// # Description
//
// This package centralizes metric definitions for the chat pipeline:
// request counts and latencies by intent, cache lookup outcomes by state,
// and upstream JSON-RPC call outcomes by tool. Metrics follow Prometheus
// naming conventions with the aleutian_gateway_* prefix.
//
// # Usage
//
//	// In main.go during startup:
//	observability.InitMetrics()
//
//	// In the request path:
//	if m := observability.DefaultMetrics; m != nil {
//	    m.RecordRequest("price", true)
//	}
//
// # Thread Safety
//
// All metric operations are thread-safe (Prometheus client guarantees).
// InitMetrics must be called exactly once before any recording.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Names and Namespaces
// =============================================================================

const (
	// metricsNamespace is the top-level namespace for all gateway metrics.
	metricsNamespace = "aleutian"

	// gatewaySubsystem groups chat-pipeline metrics.
	gatewaySubsystem = "gateway"
)

// =============================================================================
// Gateway Metrics
// =============================================================================

// GatewayMetrics holds all Prometheus metrics for the chat pipeline.
//
// # Description
//
// Tracks the request path end to end: how many turns arrived and how they
// resolved (by intent and status), how long they took, how the cache
// behaved (fresh, stale, miss), and how the upstream market-data server
// responded per tool.
//
// # Metrics
//
//   - requests_total: Counter of chat turns by intent and status
//   - request_duration_seconds: Histogram of turn latency by intent
//   - cache_lookups_total: Counter of cache lookups by query type and state
//   - upstream_calls_total: Counter of upstream tool calls by tool and status
//   - upstream_latency_seconds: Histogram of upstream call latency by tool
//   - errors_total: Counter of error envelopes by error code
type GatewayMetrics struct {
	// RequestsTotal counts chat turns.
	// Labels: intent (price, quote, historical, ...), status (success|error).
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds tracks end-to-end turn latency.
	// Labels: intent.
	RequestDurationSeconds *prometheus.HistogramVec

	// CacheLookupsTotal counts cache lookups.
	// Labels: query_type (price, quote, historical, indicator, commodities),
	// state (fresh|stale|miss).
	CacheLookupsTotal *prometheus.CounterVec

	// UpstreamCallsTotal counts upstream tool invocations.
	// Labels: tool (twelvedata_get_price, ...), status (success|error).
	UpstreamCallsTotal *prometheus.CounterVec

	// UpstreamLatencySeconds tracks upstream call latency.
	// Labels: tool.
	UpstreamLatencySeconds *prometheus.HistogramVec

	// ErrorsTotal counts error envelopes returned to callers.
	// Labels: code (SESSION_EXPIRED, RATE_LIMITED, MCP_ERROR, ...).
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance, set by InitMetrics.
var DefaultMetrics *GatewayMetrics

// InitMetrics creates and registers all gateway metrics.
//
// # Description
//
// Creates the metrics with promauto (which registers them with the default
// Prometheus registry) and stores the result in DefaultMetrics.
//
// # Outputs
//
//   - *GatewayMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Must be called exactly once. Calling twice panics (promauto
//     duplicate registration).
func InitMetrics() *GatewayMetrics {
	DefaultMetrics = &GatewayMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Total chat turns by intent and status",
			},
			[]string{"intent", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end chat turn latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"intent"},
		),

		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "cache_lookups_total",
				Help:      "Total cache lookups by query type and state",
			},
			[]string{"query_type", "state"},
		),

		UpstreamCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "upstream_calls_total",
				Help:      "Total upstream tool calls by tool and status",
			},
			[]string{"tool", "status"},
		),

		UpstreamLatencySeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "upstream_latency_seconds",
				Help:      "Upstream tool call latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "errors_total",
				Help:      "Total error envelopes by error code",
			},
			[]string{"code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records one completed chat turn.
//
// # Inputs
//
//   - intent: The classified intent of the turn.
//   - success: Whether the turn produced a ChatResponse.
func (m *GatewayMetrics) RecordRequest(intent string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(intent, status).Inc()
}

// RecordRequestDuration records end-to-end turn latency.
//
// # Inputs
//
//   - intent: The classified intent of the turn.
//   - seconds: Turn duration in seconds.
func (m *GatewayMetrics) RecordRequestDuration(intent string, seconds float64) {
	m.RequestDurationSeconds.WithLabelValues(intent).Observe(seconds)
}

// RecordCacheLookup records one cache lookup outcome.
//
// # Inputs
//
//   - queryType: The cache row type (price, quote, historical, ...).
//   - state: The lookup result (fresh, stale, miss).
func (m *GatewayMetrics) RecordCacheLookup(queryType, state string) {
	m.CacheLookupsTotal.WithLabelValues(queryType, state).Inc()
}

// RecordUpstreamCall records one upstream tool call.
//
// # Inputs
//
//   - tool: The upstream tool name.
//   - success: Whether the call returned usable data.
//   - seconds: Call latency in seconds.
func (m *GatewayMetrics) RecordUpstreamCall(tool string, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	m.UpstreamCallsTotal.WithLabelValues(tool, status).Inc()
	m.UpstreamLatencySeconds.WithLabelValues(tool).Observe(seconds)
}

// RecordError records one error envelope by its code.
//
// # Inputs
//
//   - code: The error code returned to the caller.
func (m *GatewayMetrics) RecordError(code string) {
	m.ErrorsTotal.WithLabelValues(code).Inc()
}
