// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package upstream is the JSON-RPC 2.0 client for the market-data tool
// server. It owns the wire envelope, the response-shape normalizer, and the
// field-alias table that absorbs provider drift; callers get a uniform
// ToolResult regardless of which payload shape the upstream produced.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	rpcMethodToolsCall = "tools/call"
	rpcMethodToolsList = "tools/list"

	defaultTimeout = 30 * time.Second
	healthTimeout  = 5 * time.Second
)

// ToolResult is the outcome of one upstream tool call. Failures are data,
// not Go errors: the orchestrator embeds Error in user-facing messages and
// decides recovery (stale cache) itself.
type ToolResult struct {
	Success        bool            `json:"success"`
	Data           json.RawMessage `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
	ResponseTimeMS float64         `json:"response_time_ms"`
}

// DataMap decodes Data as a JSON object. Returns nil when Data is absent or
// not an object.
func (r *ToolResult) DataMap() map[string]any {
	if len(r.Data) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.Data, &m); err != nil {
		return nil
	}
	return m
}

// DataList decodes Data as a JSON array. Returns nil when Data is absent or
// not an array.
func (r *ToolResult) DataList() []any {
	if len(r.Data) == 0 {
		return nil
	}
	var l []any
	if err := json.Unmarshal(r.Data, &l); err != nil {
		return nil
	}
	return l
}

// Config carries the client settings.
//
// APIKey is optional; when set, each request opens the enclave just long
// enough to stamp a bearer header. MaxRPS caps outbound request rate; zero
// disables the limiter.
type Config struct {
	BaseURL string
	Timeout time.Duration
	APIKey  *memguard.Enclave
	MaxRPS  float64
}

// Client speaks JSON-RPC 2.0 to the upstream tool server.
//
// # Thread Safety
//
// Safe for concurrent use. The client never retries; recovery decisions
// belong to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  *memguard.Enclave
	limiter *rate.Limiter
}

// NewClient builds a Client from cfg, applying the default timeout when none
// is set. Outbound requests carry OpenTelemetry spans via the instrumented
// transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), 1)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiKey:  cfg.APIKey,
		limiter: limiter,
	}
}

// CallTool invokes one named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) *ToolResult {
	if arguments == nil {
		arguments = map[string]any{}
	}
	return c.call(ctx, rpcMethodToolsCall, map[string]any{
		"name":      name,
		"arguments": arguments,
	})
}

// ListTools asks the upstream which tools it exposes. Diagnostic only.
func (c *Client) ListTools(ctx context.Context) *ToolResult {
	return c.call(ctx, rpcMethodToolsList, map[string]any{})
}

// HealthCheck probes GET <upstream>/health with a short deadline. Any
// transport error or non-200 status reads as unhealthy.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// call runs one JSON-RPC exchange and normalizes the response.
func (c *Client) call(ctx context.Context, method string, params map[string]any) *ToolResult {
	start := time.Now()
	fail := func(msg string) *ToolResult {
		elapsed := elapsedMS(start)
		slog.Warn("Upstream call failed",
			"method", method,
			"error", msg,
			"duration_ms", elapsed)
		return &ToolResult{Success: false, Error: msg, ResponseTimeMS: elapsed}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(transportErrorMessage(err))
		}
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fail("upstream error: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(payload))
	if err != nil {
		return fail("upstream error: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if err := c.authorize(req); err != nil {
		return fail("upstream error: " + err.Error())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(transportErrorMessage(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(transportErrorMessage(err))
	}

	data, errMsg := normalizeResponse(resp.StatusCode, body)
	elapsed := elapsedMS(start)
	if errMsg != "" {
		slog.Warn("Upstream call failed",
			"method", method,
			"error", errMsg,
			"duration_ms", elapsed)
		return &ToolResult{Success: false, Error: errMsg, ResponseTimeMS: elapsed}
	}

	slog.Debug("Upstream call completed",
		"method", method,
		"duration_ms", elapsed)
	return &ToolResult{Success: true, Data: data, ResponseTimeMS: elapsed}
}

// authorize stamps the bearer header from the sealed key, if one is
// configured. The plaintext buffer lives only for the header write.
func (c *Client) authorize(req *http.Request) error {
	if c.apiKey == nil {
		return nil
	}
	buf, err := c.apiKey.Open()
	if err != nil {
		return fmt.Errorf("open api key enclave: %w", err)
	}
	defer buf.Destroy()

	req.Header.Set("Authorization", "Bearer "+buf.String())
	return nil
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// transportErrorMessage maps transport failures onto the client's fixed
// failure taxonomy: timeouts, connection failures, everything else.
func transportErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "upstream request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "upstream request timed out"
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return "Failed to connect to upstream"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "Failed to connect to upstream"
	}

	return "upstream error: " + err.Error()
}
