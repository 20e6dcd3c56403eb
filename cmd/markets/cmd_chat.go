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
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/AleutianMarkets/cmd/markets/config"
	"github.com/spf13/cobra"
)

// runChatCommand starts the interactive chat loop against the gateway.
//
// Flags fall back to the config file: --session to chat.default_session,
// --user to chat.user. Ctrl+C ends the session gracefully with the summary
// intact.
func runChatCommand(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = config.Global.Chat.DefaultSession
	}
	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		userID = config.Global.Chat.User
	}

	runner := NewGatewayChatRunner(GatewayChatRunnerConfig{
		ServerURL: baseURL,
		SessionID: sessionID,
		UserID:    userID,
	})
	defer runner.Close()

	// Graceful shutdown: a signal cancels the context, the loop prints
	// the session summary and returns context.Canceled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Chat error: %v", err)
	}
}
