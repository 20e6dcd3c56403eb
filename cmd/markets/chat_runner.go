// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file defines the ChatRunner contract and the input readers behind the
// interactive chat loop. Input handling is layered so the loop itself never
// touches the terminal:
//
//	ChatRunner → InputReader → (InteractiveInputReader | StdinReader | MockInputReader)
//
// InteractiveInputReader wraps a bubbletea text input with arrow-key history;
// StdinReader is the fallback for pipes and redirects; MockInputReader feeds
// scripted lines in tests.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// defaultInputHistory bounds the arrow-key history of the interactive reader.
const defaultInputHistory = 100

// inputCharLimit bounds one line of chat input. Matches the gateway's query
// validation headroom so the reader never accepts what the server rejects
// on length alone.
const inputCharLimit = 4096

// =============================================================================
// INTERFACES
// =============================================================================

// ChatRunner drives one interactive chat session from start to goodbye.
//
// # Description
//
// Run owns the whole loop: header, prompt, reading input, sending each turn
// to the gateway, rendering answers, and the session summary on exit. It
// returns when the user types an exit command, input reaches EOF, or the
// context is cancelled.
//
// # Thread Safety
//
// Run is single-threaded; Close may be called from another goroutine and is
// idempotent.
type ChatRunner interface {
	// Run executes the chat loop until exit, EOF, or cancellation.
	Run(ctx context.Context) error

	// Close releases the runner's resources. Safe to call more than once.
	Close() error
}

// InputReader abstracts reading one line of user input.
//
// ReadLine blocks until a line is available and returns it with surrounding
// whitespace trimmed. io.EOF signals that input is exhausted (Ctrl+D, closed
// pipe, or a drained mock).
type InputReader interface {
	ReadLine() (string, error)
}

// PromptingInputReader is an InputReader that renders its own prompt.
//
// The chat loop prints the prompt itself for plain readers; readers that own
// the terminal line (the bubbletea reader) take the prompt via SetPrompt and
// draw it inside their input widget instead.
type PromptingInputReader interface {
	InputReader
	SetPrompt(prompt string)
}

// =============================================================================
// STDIN READER
// =============================================================================

// StdinReader reads lines from standard input. Used when stdin is a pipe or
// redirect, where raw-mode editing would be wrong.
type StdinReader struct {
	reader *bufio.Reader
}

// NewStdinReader creates a reader over os.Stdin.
func NewStdinReader() *StdinReader {
	return &StdinReader{
		reader: bufio.NewReader(os.Stdin),
	}
}

// ReadLine reads one line, trimming the trailing newline and surrounding
// whitespace. Returns io.EOF when stdin is exhausted.
func (r *StdinReader) ReadLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) != "" {
			// Last line without a trailing newline still counts.
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// =============================================================================
// INTERACTIVE READER
// =============================================================================

// InteractiveInputReader reads lines through a bubbletea text input with
// arrow-key history.
//
// # Description
//
// Each ReadLine call runs a short-lived bubbletea program on the current
// terminal line. Up/Down recall earlier inputs; Enter submits; Ctrl+C clears
// the line; Ctrl+D on an empty line ends the session. History is kept
// in-process only and deduplicates consecutive repeats.
//
// # Limitations
//
//   - History does not persist across CLI invocations.
//   - The bubbletea program writes to stderr so piped stdout stays clean.
type InteractiveInputReader struct {
	history      []string
	historyIndex int
	maxHistory   int
	prompt       string
}

// NewInteractiveInputReader creates the interactive reader, falling back to
// a plain StdinReader when stdin is not a terminal.
func NewInteractiveInputReader(maxHistory int) InputReader {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewStdinReader()
	}
	return &InteractiveInputReader{
		history:      make([]string, 0, maxHistory),
		historyIndex: -1,
		maxHistory:   maxHistory,
		prompt:       "> ",
	}
}

// SetPrompt sets the prompt drawn inside the input widget.
func (r *InteractiveInputReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

// ReadLine runs one bubbletea input program and returns the submitted line.
//
// Returns io.EOF when the user presses Ctrl+D on an empty line. Non-empty
// submissions are appended to the history.
func (r *InteractiveInputReader) ReadLine() (string, error) {
	ti := textinput.New()
	ti.Prompt = r.prompt
	ti.Focus()
	ti.CharLimit = inputCharLimit
	ti.Width = 80

	m := inputModel{
		textInput:    ti,
		history:      r.history,
		historyIndex: -1,
	}

	// Render on stderr so machine consumers of stdout never see the
	// input widget's redraws.
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("input program failed: %w", err)
	}

	final, ok := finalModel.(inputModel)
	if !ok {
		return "", fmt.Errorf("input program returned unexpected model type %T", finalModel)
	}

	if final.cancelled && final.textInput.Value() == "" {
		return "", io.EOF
	}

	input := strings.TrimSpace(final.textInput.Value())
	if input != "" {
		r.addToHistory(input)
	}
	return input, nil
}

// addToHistory appends one input, skipping consecutive duplicates and
// trimming the oldest entry past maxHistory.
func (r *InteractiveInputReader) addToHistory(input string) {
	if len(r.history) > 0 && r.history[len(r.history)-1] == input {
		return
	}
	r.history = append(r.history, input)
	if len(r.history) > r.maxHistory {
		r.history = r.history[1:]
	}
}

// =============================================================================
// BUBBLETEA INPUT MODEL
// =============================================================================

// inputModel is the bubbletea model for one line of input.
//
// historyIndex is -1 while the user types a fresh line; Up/Down move through
// history with the in-progress line stashed in currentInput so Down past the
// newest entry restores it.
type inputModel struct {
	textInput    textinput.Model
	history      []string
	historyIndex int
	currentInput string
	done         bool
	cancelled    bool
}

// Init starts the cursor blink.
func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key events: Enter submits, Ctrl+C clears, Ctrl+D cancels,
// Up/Down walk the history. Everything else goes to the text input.
func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit

		case tea.KeyCtrlC:
			m.textInput.SetValue("")
			m.done = true
			return m, tea.Quit

		case tea.KeyCtrlD:
			m.cancelled = true
			m.textInput.SetValue("")
			m.done = true
			return m, tea.Quit

		case tea.KeyUp:
			if len(m.history) > 0 {
				if m.historyIndex == -1 {
					m.currentInput = m.textInput.Value()
					m.historyIndex = len(m.history) - 1
				} else if m.historyIndex > 0 {
					m.historyIndex--
				}
				m.textInput.SetValue(m.history[m.historyIndex])
				m.textInput.CursorEnd()
			}
			return m, nil

		case tea.KeyDown:
			if m.historyIndex != -1 {
				if m.historyIndex < len(m.history)-1 {
					m.historyIndex++
					m.textInput.SetValue(m.history[m.historyIndex])
				} else {
					m.historyIndex = -1
					m.textInput.SetValue(m.currentInput)
				}
				m.textInput.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View renders the input line, or nothing once the line is submitted so the
// widget does not linger after Quit.
func (m inputModel) View() string {
	if m.done {
		return ""
	}
	return m.textInput.View()
}

// =============================================================================
// MOCK READER
// =============================================================================

// MockInputReader feeds scripted lines for tests. Returns io.EOF once the
// script is exhausted.
type MockInputReader struct {
	inputs []string
	index  int
}

// NewMockInputReader creates a mock reader over the given lines.
func NewMockInputReader(inputs []string) *MockInputReader {
	return &MockInputReader{inputs: inputs}
}

// ReadLine returns the next scripted line, or io.EOF when drained.
func (r *MockInputReader) ReadLine() (string, error) {
	if r.index >= len(r.inputs) {
		return "", io.EOF
	}
	line := r.inputs[r.index]
	r.index++
	return line, nil
}

// =============================================================================
// EXIT COMMANDS
// =============================================================================

// isExitCommand reports whether the input ends the chat session.
func isExitCommand(input string) bool {
	return input == "exit" || input == "quit"
}

// =============================================================================
// COMPILE-TIME INTERFACE CHECKS
// =============================================================================

var (
	_ InputReader          = (*StdinReader)(nil)
	_ PromptingInputReader = (*InteractiveInputReader)(nil)
	_ InputReader          = (*MockInputReader)(nil)
)
