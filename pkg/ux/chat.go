// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Chat UI Types
// =============================================================================

// HeaderConfig holds the fields displayed in the chat session header.
type HeaderConfig struct {
	// ServerURL is the gateway base URL the REPL talks to.
	ServerURL string

	// SessionID is the active session. Empty means a session will be
	// created on the first message.
	SessionID string

	// Resumed indicates the session was provided by the user rather
	// than created fresh.
	Resumed bool
}

// AnswerView is one rendered chat turn.
//
// The gateway answers every turn conversationally, including failures:
// a turn with a non-empty ErrorCode still carries a human-readable
// Answer. Stale marks answers served from an expired cache entry while
// the upstream was unreachable.
type AnswerView struct {
	Answer            string
	Type              string // price, quote, historical, indicator, conversion, commodities
	ErrorCode         string // machine code when the turn failed, empty on success
	Stale             bool
	ResponseMS        float64
	RetryAfterSeconds *int // populated on rate-limit turns
}

// SessionStats accumulates per-session metrics for the end-of-session
// summary.
type SessionStats struct {
	// MessageCount is the number of completed exchanges.
	MessageCount int

	// ErrorCount is the number of turns that came back as error envelopes.
	ErrorCount int

	// CachedCount is the number of turns answered from stale cache.
	CachedCount int

	// TotalResponseMS sums the gateway-reported response times.
	TotalResponseMS float64

	// Duration is the total session duration (wall clock).
	Duration time.Duration
}

// =============================================================================
// ChatUI Interface
// =============================================================================

// ChatUI abstracts chat display formatting for testability.
//
// # Description
//
// ChatUI renders the interactive chat surface: the session header, the
// input prompt, answers, errors, and the end-of-session summary. The
// production implementation writes styled output to stdout; tests
// inject a buffer via NewChatUIWithWriter.
//
// # Thread Safety
//
// Implementations are not safe for concurrent use. The chat loop is
// single-threaded.
type ChatUI interface {
	// Header displays the session header before the first prompt.
	Header(config HeaderConfig)

	// Prompt returns the styled input prompt string.
	Prompt() string

	// Answer displays one chat turn.
	Answer(view AnswerView)

	// Error displays a transport-level error (the turn produced no answer).
	Error(err error)

	// Notice displays a one-line informational message.
	Notice(text string)

	// SessionEnd displays the end-of-session summary.
	SessionEnd(sessionID string, stats *SessionStats)
}

// terminalChatUI is the production ChatUI writing to a terminal.
type terminalChatUI struct {
	writer      io.Writer
	personality PersonalityLevel
}

func (u *terminalChatUI) write(format string, args ...interface{}) {
	fmt.Fprintf(u.writer, format, args...)
}

func (u *terminalChatUI) writeln(args ...interface{}) {
	fmt.Fprintln(u.writer, args...)
}

// NewChatUI creates a ChatUI writing to stdout with the current
// personality level.
func NewChatUI() ChatUI {
	return &terminalChatUI{
		writer:      os.Stdout,
		personality: GetPersonality().Level,
	}
}

// NewChatUIWithWriter creates a ChatUI with an injected writer and
// personality. Used by tests to capture output.
func NewChatUIWithWriter(w io.Writer, personality PersonalityLevel) ChatUI {
	return &terminalChatUI{
		writer:      w,
		personality: personality,
	}
}

// =============================================================================
// Rendering
// =============================================================================

// Header displays the chat session header.
func (u *terminalChatUI) Header(config HeaderConfig) {
	if u.personality == PersonalityMachine {
		u.headerMachine(config)
		return
	}
	if u.personality == PersonalityMinimal {
		u.headerMinimal(config)
		return
	}
	u.headerFull(config)
}

// headerMachine renders the header in machine-readable format.
func (u *terminalChatUI) headerMachine(config HeaderConfig) {
	parts := []string{fmt.Sprintf("server=%s", config.ServerURL)}
	if config.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", config.SessionID))
	}
	if config.Resumed {
		parts = append(parts, "resumed=true")
	}
	u.write("CHAT_START: %s\n", strings.Join(parts, " "))
}

// headerMinimal renders the header in minimal format.
func (u *terminalChatUI) headerMinimal(config HeaderConfig) {
	u.write("Market Chat (%s)\n", config.ServerURL)
	if config.SessionID != "" {
		u.write("Session: %s\n", config.SessionID)
	}
	u.writeln("Type 'exit' to end.")
}

// headerFull renders the header with full styling.
func (u *terminalChatUI) headerFull(config HeaderConfig) {
	var content strings.Builder
	content.WriteString(Styles.Highlight.Render("Market Data Chat"))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("Server: %s", Styles.Success.Render(config.ServerURL)))
	if config.SessionID != "" {
		content.WriteString("\n")
		if config.Resumed {
			content.WriteString(fmt.Sprintf("Session: %s %s",
				Styles.Muted.Render(config.SessionID),
				Styles.Muted.Render("(resumed)")))
		} else {
			content.WriteString(fmt.Sprintf("Session: %s", Styles.Muted.Render(config.SessionID)))
		}
	}

	boxStyle := Styles.Box.Width(60)
	u.writeln(boxStyle.Render(content.String()))
	u.writeln()
	u.writeln(Styles.Muted.Render("Ask about prices, quotes, history, or indicators. Type 'exit' to end."))
	u.writeln()
}

// Prompt returns the styled input prompt string
func (u *terminalChatUI) Prompt() string {
	if u.personality == PersonalityMachine {
		return "> "
	}
	return Styles.Highlight.Render("> ")
}

// Answer displays one chat turn.
//
// # Description
//
// Renders the conversational answer plus a muted metadata line with the
// payload type and response time. Failed turns show the machine code;
// stale-cache turns and rate-limit retry hints are called out.
//
// # Inputs
//
//   - view: The turn to render.
//
// # Outputs
//
// None. Writes directly to the configured writer.
func (u *terminalChatUI) Answer(view AnswerView) {
	if u.personality == PersonalityMachine {
		if view.ErrorCode != "" {
			u.write("ANSWER: code=%s %s\n", view.ErrorCode, view.Answer)
		} else {
			u.write("ANSWER: type=%s %s\n", view.Type, view.Answer)
		}
		return
	}

	u.writeln()
	u.writeln(view.Answer)

	if u.personality == PersonalityMinimal {
		return
	}

	// Metadata line: type or error code, staleness, timing.
	var meta []string
	if view.ErrorCode != "" {
		meta = append(meta, view.ErrorCode)
	} else if view.Type != "" {
		meta = append(meta, view.Type)
	}
	if view.Stale {
		meta = append(meta, "stale cache")
	}
	if view.ResponseMS > 0 {
		meta = append(meta, fmt.Sprintf("%.0f ms", view.ResponseMS))
	}
	if len(meta) > 0 {
		u.writeln(Styles.Muted.Render("  [" + strings.Join(meta, " | ") + "]"))
	}
	if view.RetryAfterSeconds != nil {
		u.write("%s %s\n", IconWarning.Render(),
			Styles.Warning.Render(fmt.Sprintf("Rate limited. Retry in %d seconds.", *view.RetryAfterSeconds)))
	}
}

// Error displays a transport-level chat error.
func (u *terminalChatUI) Error(err error) {
	if u.personality == PersonalityMachine {
		u.write("CHAT_ERROR: %v\n", err)
		return
	}
	u.write("%s %s\n", IconError.Render(), Styles.Error.Render(fmt.Sprintf("Chat error: %v", err)))
}

// Notice displays a one-line informational message.
func (u *terminalChatUI) Notice(text string) {
	if u.personality == PersonalityMachine {
		u.write("NOTICE: %s\n", text)
		return
	}
	u.writeln(Styles.Muted.Render(text))
}

// SessionEnd displays the end-of-session summary.
//
// # Description
//
// Shows the session ID (so the user can resume with --session) and the
// accumulated statistics: message count, errors, stale-cache hits,
// average response time, and duration. Machine mode emits a single
// parseable line.
//
// # Inputs
//
//   - sessionID: The session identifier. May be empty when no message
//     was ever sent.
//   - stats: Accumulated statistics. Nil renders a bare goodbye.
func (u *terminalChatUI) SessionEnd(sessionID string, stats *SessionStats) {
	if u.personality == PersonalityMachine {
		if stats != nil {
			u.write("CHAT_END: session=%s messages=%d errors=%d stale=%d duration_s=%.0f\n",
				sessionID, stats.MessageCount, stats.ErrorCount, stats.CachedCount,
				stats.Duration.Seconds())
		} else {
			u.write("CHAT_END: session=%s\n", sessionID)
		}
		return
	}

	u.writeln()
	if stats == nil || stats.MessageCount == 0 {
		if sessionID != "" {
			u.writeln(Styles.Muted.Render(fmt.Sprintf("Session: %s", sessionID)))
		}
		u.writeln("Goodbye!")
		return
	}

	var content strings.Builder
	content.WriteString(Styles.Subtitle.Render("Session summary"))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("Messages: %s", Styles.Bold.Render(fmt.Sprintf("%d", stats.MessageCount))))
	if stats.ErrorCount > 0 {
		content.WriteString(fmt.Sprintf("  Errors: %s", Styles.Warning.Render(fmt.Sprintf("%d", stats.ErrorCount))))
	}
	if stats.CachedCount > 0 {
		content.WriteString(fmt.Sprintf("  Stale answers: %s", Styles.Warning.Render(fmt.Sprintf("%d", stats.CachedCount))))
	}
	if stats.MessageCount > 0 && stats.TotalResponseMS > 0 {
		avg := stats.TotalResponseMS / float64(stats.MessageCount)
		content.WriteString(fmt.Sprintf("\nAvg response: %s", Styles.Success.Render(fmt.Sprintf("%.0f ms", avg))))
	}
	content.WriteString(fmt.Sprintf("\nDuration: %s", formatDuration(stats.Duration)))
	if sessionID != "" {
		content.WriteString("\n")
		content.WriteString(Styles.Muted.Render(fmt.Sprintf("Resume with: markets chat --session %s", sessionID)))
	}

	boxStyle := Styles.Box.Width(60)
	u.writeln(boxStyle.Render(content.String()))
	u.writeln("Goodbye!")
}

// formatDuration renders a duration in a compact human form (e.g. "2m 15s").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "under a second"
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
