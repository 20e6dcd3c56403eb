// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements the `markets cache` subcommands against the
// gateway's /v1/cache endpoints.

package main

import (
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/AleutianAI/AleutianMarkets/pkg/ux"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/spf13/cobra"
)

// runCacheStats prints cache occupancy broken down by query type.
func runCacheStats(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()

	client := newGatewayClient()
	resp, err := client.Get(fmt.Sprintf("%s/v1/cache/stats", baseURL))
	if err != nil {
		log.Fatalf("Failed to connect to the gateway: %v", err)
	}
	defer resp.Body.Close()

	var stats datatypes.CacheStats
	if err := decodeResponse(resp, &stats); err != nil {
		log.Fatalf("Failed to fetch cache stats: %v", err)
	}

	fmt.Printf("Cached entries: %d (%d active, %d expired)\n", stats.Total, stats.Active, stats.Expired)
	if len(stats.ByType) == 0 {
		return
	}

	// Stable ordering for scripts that diff the output.
	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Println("By type:")
	for _, t := range types {
		fmt.Printf("  %-15s %d\n", t, stats.ByType[t])
	}
}

// runCacheClear drops every cached market data entry.
func runCacheClear(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()
	gatewayURL := fmt.Sprintf("%s/v1/cache", baseURL)

	req, err := http.NewRequest(http.MethodDelete, gatewayURL, nil)
	if err != nil {
		log.Fatalf("Failed to create clear request: %v", err)
	}

	resp, err := newGatewayClient().Do(req)
	if err != nil {
		log.Fatalf("Failed to send clear request to the gateway: %v", err)
	}
	defer resp.Body.Close()

	var result struct {
		Cleared int `json:"cleared"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		log.Fatalf("Failed to clear cache: %v", err)
	}

	ux.Success(fmt.Sprintf("Cleared %d cached entries", result.Cleared))
}
