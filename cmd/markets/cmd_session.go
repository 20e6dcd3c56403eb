// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements the `markets session` subcommands: create, show,
// history, and delete against the gateway's /v1/sessions endpoints.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianMarkets/cmd/markets/config"
	"github.com/AleutianAI/AleutianMarkets/pkg/ux"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/spf13/cobra"
)

// runCreateSession creates a session without starting a chat. Useful for
// scripting: create once, then pass the ID to `markets chat --session`.
func runCreateSession(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()

	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		userID = config.Global.Chat.User
	}

	postBody, err := json.Marshal(datatypes.CreateSessionRequest{
		UserID:   userID,
		Metadata: map[string]string{"client": "markets-cli"},
	})
	if err != nil {
		log.Fatalf("Failed to create request body: %v", err)
	}

	client := newGatewayClient()
	resp, err := client.Post(fmt.Sprintf("%s/v1/sessions", baseURL), "application/json", bytes.NewBuffer(postBody))
	if err != nil {
		log.Fatalf("Failed to connect to the gateway: %v", err)
	}
	defer resp.Body.Close()

	var created datatypes.SessionResponse
	if err := decodeResponse(resp, &created); err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	ux.Success(fmt.Sprintf("Created session %s", created.SessionID))
	fmt.Printf("Expires: %s\n", created.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("Start chatting with: markets chat --session %s\n", created.SessionID)
}

// runShowSession prints the metadata of one session.
func runShowSession(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()
	sessionID := args[0]

	client := newGatewayClient()
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s", baseURL, url.PathEscape(sessionID)))
	if err != nil {
		log.Fatalf("Failed to connect to the gateway: %v", err)
	}
	defer resp.Body.Close()

	var info datatypes.SessionInfoResponse
	if err := decodeResponse(resp, &info); err != nil {
		log.Fatalf("Failed to fetch session: %v", err)
	}

	fmt.Printf("Session: %s\n", info.SessionID)
	if info.UserID != "" {
		fmt.Printf("User: %s\n", info.UserID)
	}
	fmt.Printf("Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Last activity: %s\n", info.LastActivity.Format(time.RFC3339))
	fmt.Printf("Expires: %s\n", info.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("Requests this window: %d\n", info.RequestCount)
	fmt.Printf("Context turns: %d\n", info.ContextLength)
}

// runSessionHistory prints the interpreted conversation turns of a session:
// what was asked, and how the gateway read it (intent, symbols, indicator).
func runSessionHistory(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()
	sessionID := args[0]

	client := newGatewayClient()
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/history", baseURL, url.PathEscape(sessionID)))
	if err != nil {
		log.Fatalf("Failed to connect to the gateway: %v", err)
	}
	defer resp.Body.Close()

	var history datatypes.SessionHistoryResponse
	if err := decodeResponse(resp, &history); err != nil {
		log.Fatalf("Failed to fetch session history: %v", err)
	}

	if len(history.History) == 0 {
		fmt.Println("No conversation turns recorded for this session.")
		return
	}

	fmt.Printf("History for session %s:\n", history.SessionID)
	fmt.Println("------------------------------------------------------------------")
	for i, turn := range history.History {
		fmt.Printf("%d. [%s] %s\n", i+1, turn.Timestamp.Format("2006-01-02 15:04:05"), turn.Query)
		details := fmt.Sprintf("   intent=%s", turn.Intent)
		if len(turn.Symbols) > 0 {
			details += fmt.Sprintf(" symbols=%s", strings.Join(turn.Symbols, ","))
		}
		if turn.Indicator != "" {
			details += fmt.Sprintf(" indicator=%s", turn.Indicator)
		}
		if turn.Interval != "" {
			details += fmt.Sprintf(" interval=%s", turn.Interval)
		}
		fmt.Println(details)
	}
}

// runDeleteSession deletes one session and its context.
func runDeleteSession(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()
	sessionID := args[0]
	gatewayURL := fmt.Sprintf("%s/v1/sessions/%s", baseURL, url.PathEscape(sessionID))

	req, err := http.NewRequest(http.MethodDelete, gatewayURL, nil)
	if err != nil {
		log.Fatalf("Failed to create delete request: %v", err)
	}

	resp, err := newGatewayClient().Do(req)
	if err != nil {
		log.Fatalf("Failed to send delete request to the gateway: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Gateway returned an error: %s", resp.Status)
	}

	fmt.Printf("Successfully deleted session: %s\n", sessionID)
}
