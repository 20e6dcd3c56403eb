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
	"github.com/AleutianAI/AleutianMarkets/cmd/markets/config"
	"github.com/AleutianAI/AleutianMarkets/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL        string // Gateway base URL override (flag > env > config file)
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	rootCmd = &cobra.Command{
		Use:   "markets",
		Short: "A cli for the Aleutian conversational market data gateway",
		Long: `Markets is a terminal client for the Aleutian market data gateway.
				Ask about prices, quotes, history, and indicators in plain English,
				manage chat sessions, and administer the gateway.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load ~/.aleutian/markets.yaml before anything reads defaults.
			// A broken config file should not brick the CLI.
			if err := config.Load(); err != nil {
				ux.Warning("Could not load config file: " + err.Error())
			}

			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Starts an interactive chat session against the gateway",
		Run:   runChatCommand, // Defined in cmd_chat.go
	}

	// --- Sessions ---
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}
	createSessionCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a new conversation session",
		Run:   runCreateSession, // Defined in cmd_session.go
	}
	showSessionCmd = &cobra.Command{
		Use:   "show [session_id]",
		Short: "Show metadata for a conversation session",
		Args:  cobra.ExactArgs(1),
		Run:   runShowSession, // Defined in cmd_session.go
	}
	sessionHistoryCmd = &cobra.Command{
		Use:   "history [session_id]",
		Short: "Show the conversation history of a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionHistory, // Defined in cmd_session.go
	}
	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete a specific conversation session",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteSession, // Defined in cmd_session.go
	}

	// --- Cache Admin ---
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the gateway market data cache",
	}
	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit/miss statistics",
		Run:   runCacheStats, // Defined in cmd_cache.go
	}
	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Drop all cached market data entries",
		Run:   runCacheClear, // Defined in cmd_cache.go
	}
)

// init runs when the Go program starts
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Gateway base URL (default: $ALEUTIAN_MARKETS_URL, config file, then http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default, rich), standard, minimal, or machine (scripting)")

	// chat command
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Resume a conversation using a specific session ID.")
	chatCmd.Flags().String("user", "", "User identifier to attach to new sessions.")

	// session commands
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(createSessionCmd)
	createSessionCmd.Flags().String("user", "", "User identifier to attach to the session.")
	sessionCmd.AddCommand(showSessionCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
	sessionCmd.AddCommand(deleteSessionCmd)

	// cache administration commands
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
