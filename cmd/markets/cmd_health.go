// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/AleutianAI/AleutianMarkets/pkg/ux"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	healthJSONOutput bool          // Output as JSON for scripting
	healthTimeout    time.Duration // Timeout covering both probes
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// healthCmd reports gateway and upstream health.
//
// # Description
//
// Runs two probes against the gateway: GET /v1/health for the gateway
// process itself (latency measured client-side) and GET /v1/upstream-health
// for the market data server behind it. Exits 1 when either side is down so
// scripts can gate on the result.
//
// # Examples
//
//	markets health            # Human-readable report
//	markets health --json     # JSON output for scripting
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Display gateway and upstream market server health",
	Long: `Checks the health of the market data gateway and its upstream server.

Two probes run against the gateway:
  - /v1/health           the gateway process itself (latency measured)
  - /v1/upstream-health  the market data server behind the gateway

Examples:
  markets health            # Human-readable report
  markets health --json     # JSON output for automation`,
	Run: runHealthCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	healthCmd.Flags().BoolVar(&healthJSONOutput, "json", false,
		"Output as JSON for scripting")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 10*time.Second,
		"Timeout for the health probes")

	rootCmd.AddCommand(healthCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runHealthCommand probes the gateway and renders the combined report.
//
// Both probes run even when the first fails; a gateway that answers
// /v1/health but reports a dead upstream is the case worth seeing.
func runHealthCommand(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	result := GatewayHealthResult{
		Gateway:  probeGateway(ctx, baseURL),
		Upstream: probeUpstream(ctx, baseURL),
	}
	result.Healthy = result.Gateway.Reachable &&
		result.Gateway.Status == "ok" &&
		result.Upstream.Connected

	if healthJSONOutput {
		outputHealthJSON(&result)
	} else {
		outputHealthReport(baseURL, &result)
	}

	if !result.Healthy {
		os.Exit(CLIExitFindings)
	}
}

// probeGateway checks the gateway's own liveness endpoint and measures the
// round-trip latency.
func probeGateway(ctx context.Context, baseURL string) GatewayStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/health", baseURL), nil)
	if err != nil {
		return GatewayStatus{Error: err.Error()}
	}

	start := time.Now()
	resp, err := newGatewayClient().Do(req)
	if err != nil {
		return GatewayStatus{Error: err.Error()}
	}
	defer resp.Body.Close()
	latency := time.Since(start).Milliseconds()

	var health datatypes.HealthResponse
	if err := decodeResponse(resp, &health); err != nil {
		return GatewayStatus{Reachable: true, LatencyMs: latency, Error: err.Error()}
	}

	return GatewayStatus{
		Reachable: true,
		Status:    health.Status,
		Version:   health.Version,
		LatencyMs: latency,
	}
}

// probeUpstream asks the gateway whether its market data upstream is
// reachable.
func probeUpstream(ctx context.Context, baseURL string) UpstreamStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/upstream-health", baseURL), nil)
	if err != nil {
		return UpstreamStatus{Error: err.Error()}
	}

	resp, err := newGatewayClient().Do(req)
	if err != nil {
		return UpstreamStatus{Error: err.Error()}
	}
	defer resp.Body.Close()

	var upstreamHealth datatypes.UpstreamHealthResponse
	if err := decodeResponse(resp, &upstreamHealth); err != nil {
		return UpstreamStatus{Error: err.Error()}
	}

	return UpstreamStatus{
		Connected:   upstreamHealth.Connected,
		Status:      upstreamHealth.Status,
		UpstreamURL: upstreamHealth.UpstreamURL,
		Message:     upstreamHealth.Message,
	}
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

// outputHealthJSON writes the report as indented JSON for scripting.
func outputHealthJSON(result *GatewayHealthResult) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(CLIExitError)
	}
}

// outputHealthReport writes the human-readable report.
func outputHealthReport(baseURL string, result *GatewayHealthResult) {
	fmt.Printf("Gateway: %s\n", baseURL)

	gatewayDetail := result.Gateway.Error
	if result.Gateway.Reachable && result.Gateway.Error == "" {
		gatewayDetail = fmt.Sprintf("v%s, %d ms", result.Gateway.Version, result.Gateway.LatencyMs)
	}
	ux.StatusLine("gateway", result.Gateway.Reachable && result.Gateway.Status == "ok", gatewayDetail)

	upstreamDetail := result.Upstream.Message
	if result.Upstream.Error != "" {
		upstreamDetail = result.Upstream.Error
	} else if result.Upstream.UpstreamURL != "" {
		upstreamDetail = fmt.Sprintf("%s (%s)", result.Upstream.Message, result.Upstream.UpstreamURL)
	}
	ux.StatusLine("upstream", result.Upstream.Connected, upstreamDetail)

	fmt.Println()
	if result.Healthy {
		ux.Success("Gateway and upstream are healthy")
	} else {
		ux.Warning("Degraded: some checks failed")
	}
}
