// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements ChatRunner against the gateway chat service: the
// interactive loop that reads queries, posts them one turn at a time, and
// renders the conversational answers.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianMarkets/pkg/ux"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// GatewayChatRunnerConfig holds configuration for the gateway chat runner.
//
// # Fields
//
//   - ServerURL: Gateway base URL (required).
//   - SessionID: Session to resume. Empty starts a fresh session on the
//     first message.
//   - UserID: Attributed to sessions created during the run (optional).
//   - Service, UI, Input: Injection points for tests. Nil selects the
//     production implementations.
type GatewayChatRunnerConfig struct {
	ServerURL string
	SessionID string
	UserID    string
	Service   ChatService
	UI        ux.ChatUI
	Input     InputReader
}

// =============================================================================
// IMPLEMENTATION
// =============================================================================

// gatewayChatRunner implements ChatRunner for the gateway's request/response
// chat endpoint.
//
// # Thread Safety
//
// Run is single-threaded. The mutex only guards Close's idempotency.
type gatewayChatRunner struct {
	service      ChatService
	ui           ux.ChatUI
	input        InputReader
	serverURL    string
	resumed      bool
	sessionStart time.Time
	stats        ux.SessionStats
	closed       bool
	mu           sync.Mutex
}

// NewGatewayChatRunner creates a chat runner bound to one gateway.
//
// # Inputs
//
//   - config: Runner configuration. Only ServerURL is required.
//
// # Outputs
//
//   - ChatRunner: Ready-to-use runner. Caller must Close it.
func NewGatewayChatRunner(config GatewayChatRunnerConfig) ChatRunner {
	service := config.Service
	if service == nil {
		service = NewGatewayChatService(GatewayChatServiceConfig{
			BaseURL:   config.ServerURL,
			SessionID: config.SessionID,
			UserID:    config.UserID,
		})
	}

	ui := config.UI
	if ui == nil {
		ui = ux.NewChatUI()
	}

	input := config.Input
	if input == nil {
		input = NewInteractiveInputReader(defaultInputHistory)
	}

	return &gatewayChatRunner{
		service:   service,
		ui:        ui,
		input:     input,
		serverURL: config.ServerURL,
		resumed:   config.SessionID != "",
	}
}

// =============================================================================
// CHAT LOOP
// =============================================================================

// Run executes the chat loop until exit, EOF, or cancellation.
//
// # Description
//
// Displays the session header, then loops: read a line, skip empties, end
// on "exit"/"quit" or EOF, otherwise send the turn to the gateway and render
// the answer. Transport errors are shown and the loop continues; a cancelled
// context ends the session with the summary intact.
//
// # Inputs
//
//   - ctx: Context for cancellation. Checked before each prompt and after
//     each failed turn.
//
// # Outputs
//
//   - error: ctx.Err() on cancellation, a wrapped read error if input
//     breaks, nil on a normal goodbye.
func (r *gatewayChatRunner) Run(ctx context.Context) error {
	r.sessionStart = time.Now()

	r.ui.Header(ux.HeaderConfig{
		ServerURL: r.serverURL,
		SessionID: r.service.GetSessionID(),
		Resumed:   r.resumed,
	})

	for {
		select {
		case <-ctx.Done():
			return r.handleShutdown(ctx)
		default:
		}

		if pr, ok := r.input.(PromptingInputReader); ok {
			pr.SetPrompt(r.ui.Prompt())
		} else if ux.IsInteractive() {
			fmt.Print(r.ui.Prompt())
		}

		input, err := r.input.ReadLine()
		if err != nil {
			if err == io.EOF {
				r.displaySessionEnd()
				return nil
			}
			slog.Error("failed to read chat input", "error", err)
			return fmt.Errorf("read input: %w", err)
		}

		if input == "" {
			continue
		}

		// The input widget clears its line on quit; echo the submitted
		// text so the transcript keeps the question above its answer.
		if _, interactive := r.input.(*InteractiveInputReader); interactive {
			fmt.Printf("%s%s\n", r.ui.Prompt(), input)
		}

		if isExitCommand(input) {
			r.displaySessionEnd()
			return nil
		}

		if err := r.handleMessage(ctx, input); err != nil {
			if ctx.Err() != nil {
				return r.handleShutdown(ctx)
			}
			r.ui.Error(err)
			continue
		}
	}
}

// handleMessage sends one turn to the gateway and renders the answer.
//
// A turn that fails inside the pipeline still renders as an answer (the
// envelope carries user-facing text); only transport and decode failures
// come back as errors.
func (r *gatewayChatRunner) handleMessage(ctx context.Context, input string) error {
	sessionBefore := r.service.GetSessionID()

	spinner := ux.NewSpinner("Thinking").WithType(ux.SpinnerPulse)
	if ux.ShouldShowProgress() {
		spinner.Start()
	}
	view, err := r.service.SendMessage(ctx, input)
	spinner.Stop()
	if err != nil {
		return err
	}

	// The service creates sessions lazily and drops expired ones; tell
	// the user when a new session appeared so they can resume it later.
	if sessionBefore == "" {
		if sessionAfter := r.service.GetSessionID(); sessionAfter != "" {
			r.ui.Notice(fmt.Sprintf("Started session %s", sessionAfter))
		}
	}

	r.ui.Answer(*view)
	r.accumulateStats(view)
	return nil
}

// accumulateStats folds one rendered turn into the session statistics.
func (r *gatewayChatRunner) accumulateStats(view *ux.AnswerView) {
	r.stats.MessageCount++
	if view.ErrorCode != "" {
		r.stats.ErrorCount++
	}
	if view.Stale {
		r.stats.CachedCount++
	}
	r.stats.TotalResponseMS += view.ResponseMS
}

// displaySessionEnd renders the end-of-session summary with the final
// wall-clock duration.
func (r *gatewayChatRunner) displaySessionEnd() {
	stats := r.stats
	stats.Duration = time.Since(r.sessionStart)
	r.ui.SessionEnd(r.service.GetSessionID(), &stats)
}

// handleShutdown ends the session after a context cancellation. Session
// state lives on the gateway, so there is nothing to save; just land on a
// fresh line and print the summary.
func (r *gatewayChatRunner) handleShutdown(ctx context.Context) error {
	slog.Info("chat session interrupted", "session_id", r.service.GetSessionID())

	fmt.Println()
	r.displaySessionEnd()
	return ctx.Err()
}

// Close releases the runner's resources. Safe to call more than once.
func (r *gatewayChatRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.service.Close()
}

// =============================================================================
// COMPILE-TIME INTERFACE CHECKS
// =============================================================================

var _ ChatRunner = (*gatewayChatRunner)(nil)
