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
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestGatewayHealthResultJSON tests the wire shape scripts parse from
// `markets health --json`.
func TestGatewayHealthResultJSON(t *testing.T) {
	result := GatewayHealthResult{
		Gateway: GatewayStatus{
			Reachable: true,
			Status:    "ok",
			Version:   "0.2.0",
			LatencyMs: 12,
		},
		Upstream: UpstreamStatus{
			Connected:   true,
			Status:      "connected",
			UpstreamURL: "http://localhost:9000",
			Message:     "Upstream market data service is reachable",
		},
		Healthy: true,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal GatewayHealthResult: %v", err)
	}

	var decoded GatewayHealthResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal GatewayHealthResult: %v", err)
	}

	if decoded.Healthy != result.Healthy {
		t.Errorf("Healthy = %v, want %v", decoded.Healthy, result.Healthy)
	}
	if decoded.Gateway.Version != result.Gateway.Version {
		t.Errorf("Gateway.Version = %s, want %s", decoded.Gateway.Version, result.Gateway.Version)
	}
	if decoded.Upstream.UpstreamURL != result.Upstream.UpstreamURL {
		t.Errorf("Upstream.UpstreamURL = %s, want %s", decoded.Upstream.UpstreamURL, result.Upstream.UpstreamURL)
	}

	// Field names are a contract with scripts; spot-check the keys.
	payload := string(data)
	for _, key := range []string{`"healthy"`, `"gateway"`, `"upstream"`, `"latency_ms"`} {
		if !strings.Contains(payload, key) {
			t.Errorf("Serialized health result missing %s: %s", key, payload)
		}
	}
}

// TestBackupResultJSON_OmitsBucketPathWhenEmpty ensures local-only backups
// don't emit an empty bucket_path field.
func TestBackupResultJSON_OmitsBucketPathWhenEmpty(t *testing.T) {
	result := BackupResult{
		Path:      "gateway.badger.bak",
		SizeBytes: 4096,
		Since:     0,
		Uploaded:  false,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal BackupResult: %v", err)
	}

	if strings.Contains(string(data), "bucket_path") {
		t.Errorf("bucket_path should be omitted when empty: %s", string(data))
	}
}

// TestOutputResult_Success tests OutputResult with no error and no findings.
func TestOutputResult_Success(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()
	data := map[string]string{"test": "value"}

	exitCode := OutputResult(cfg, "test", start, data, false, nil)

	if exitCode != CLIExitSuccess {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitSuccess)
	}
}

// TestOutputResult_Findings tests OutputResult with findings.
func TestOutputResult_Findings(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()
	data := map[string]string{"test": "value"}

	exitCode := OutputResult(cfg, "test", start, data, true, nil)

	if exitCode != CLIExitFindings {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitFindings)
	}
}

// TestOutputResult_Error tests OutputResult with error.
func TestOutputResult_Error(t *testing.T) {
	cfg := OutputConfig{JSON: false, Quiet: true}
	start := time.Now()

	exitCode := OutputResult(cfg, "test", start, nil, false, bytes.ErrTooLarge)

	if exitCode != CLIExitError {
		t.Errorf("Exit code = %d, want %d", exitCode, CLIExitError)
	}
}

// TestExitCodeConstants tests exit code constant values.
func TestExitCodeConstants(t *testing.T) {
	if CLIExitSuccess != 0 {
		t.Errorf("CLIExitSuccess = %d, want 0", CLIExitSuccess)
	}
	if CLIExitFindings != 1 {
		t.Errorf("CLIExitFindings = %d, want 1", CLIExitFindings)
	}
	if CLIExitError != 2 {
		t.Errorf("CLIExitError = %d, want 2", CLIExitError)
	}
}
