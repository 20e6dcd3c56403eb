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
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianMarkets/cmd/markets/config"
)

// saveResolutionState snapshots the flag and config globals that
// getGatewayBaseURL reads, restoring them when the test ends.
func saveResolutionState(t *testing.T) {
	t.Helper()
	oldFlag := serverURL
	oldConfig := config.Global
	t.Cleanup(func() {
		serverURL = oldFlag
		config.Global = oldConfig
	})
}

// TestGetGatewayBaseURL_Default checks that the default URL matches expectations
func TestGetGatewayBaseURL_Default(t *testing.T) {
	saveResolutionState(t)
	serverURL = ""
	config.Global = config.MarketsConfig{}
	t.Setenv("ALEUTIAN_MARKETS_URL", "")

	url := getGatewayBaseURL()
	expected := fmt.Sprintf("http://%s:%d", DefaultGatewayHost, DefaultGatewayPort)
	if url != expected {
		t.Errorf("Expected %s, got %s", expected, url)
	}
}

// TestGetGatewayBaseURL_FlagWins verifies the --server flag beats every
// other source.
func TestGetGatewayBaseURL_FlagWins(t *testing.T) {
	saveResolutionState(t)
	serverURL = "http://flag:1111"
	config.Global.Server.URL = "http://config:3333"
	t.Setenv("ALEUTIAN_MARKETS_URL", "http://env:2222")

	if url := getGatewayBaseURL(); url != "http://flag:1111" {
		t.Errorf("Expected flag URL, got %s", url)
	}
}

// TestGetGatewayBaseURL_EnvBeatsConfig verifies the environment variable
// beats the config file entry.
func TestGetGatewayBaseURL_EnvBeatsConfig(t *testing.T) {
	saveResolutionState(t)
	serverURL = ""
	config.Global.Server.URL = "http://config:3333"
	t.Setenv("ALEUTIAN_MARKETS_URL", "http://env:2222")

	if url := getGatewayBaseURL(); url != "http://env:2222" {
		t.Errorf("Expected env URL, got %s", url)
	}
}

// TestGetGatewayBaseURL_ConfigFallback verifies the config file entry is
// used when neither flag nor environment is set.
func TestGetGatewayBaseURL_ConfigFallback(t *testing.T) {
	saveResolutionState(t)
	serverURL = ""
	config.Global.Server.URL = "http://config:3333"
	t.Setenv("ALEUTIAN_MARKETS_URL", "")

	if url := getGatewayBaseURL(); url != "http://config:3333" {
		t.Errorf("Expected config URL, got %s", url)
	}
}

// fakeResponse builds an http.Response around a string body for
// decodeResponse tests.
func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDecodeResponse_Success(t *testing.T) {
	resp := fakeResponse(http.StatusOK, `{"cleared": 7}`)

	var out struct {
		Cleared int `json:"cleared"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		t.Fatalf("decodeResponse failed: %v", err)
	}
	if out.Cleared != 7 {
		t.Errorf("Cleared = %d, want 7", out.Cleared)
	}
}

func TestDecodeResponse_ErrorStatus(t *testing.T) {
	resp := fakeResponse(http.StatusNotFound, `{"error":{"code":"SESSION_NOT_FOUND"}}`)

	err := decodeResponse(resp, nil)
	if err == nil {
		t.Fatal("decodeResponse should fail for a 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("Error should carry the status, got: %v", err)
	}
	if !strings.Contains(err.Error(), "SESSION_NOT_FOUND") {
		t.Errorf("Error should carry the body, got: %v", err)
	}
}

func TestDecodeResponse_NilOut(t *testing.T) {
	resp := fakeResponse(http.StatusOK, `{"anything": true}`)

	if err := decodeResponse(resp, nil); err != nil {
		t.Errorf("decodeResponse with nil out should succeed, got: %v", err)
	}
}

func TestDecodeResponse_InvalidJSON(t *testing.T) {
	resp := fakeResponse(http.StatusOK, "not json at all")

	var out map[string]any
	err := decodeResponse(resp, &out)
	if err == nil {
		t.Fatal("decodeResponse should fail for a non-JSON body")
	}
	if !strings.Contains(err.Error(), "failed to parse gateway response") {
		t.Errorf("Error should mention the parse failure, got: %v", err)
	}
}
