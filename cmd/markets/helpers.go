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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/AleutianAI/AleutianMarkets/cmd/markets/config"
)

// Constants for default connection settings
const (
	DefaultGatewayPort = 8080
	DefaultGatewayHost = "localhost"
)

// getGatewayBaseURL returns the gateway address the CLI should talk to.
//
// Resolution order: --server flag, ALEUTIAN_MARKETS_URL environment
// variable, the server entry in ~/.aleutian/markets.yaml, then the
// compiled-in default.
func getGatewayBaseURL() string {
	if serverURL != "" {
		return serverURL
	}
	if url := os.Getenv("ALEUTIAN_MARKETS_URL"); url != "" {
		return url
	}
	if url := config.Global.Server.URL; url != "" {
		return url
	}
	return fmt.Sprintf("http://%s:%d", DefaultGatewayHost, DefaultGatewayPort)
}

// newGatewayClient returns an HTTP client with a sane timeout for
// one-shot CLI calls. Chat uses its own client (queries can be slow
// when the upstream rate limiter queues us).
func newGatewayClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// decodeResponse reads an HTTP response body into out, surfacing
// non-2xx statuses as errors that include the body text.
func decodeResponse(resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned %s: %s", resp.Status, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return nil
}
