// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// database queries (Flux), cache keys, or upstream tool arguments. Using these
// validators prevents injection attacks and keeps garbage out of durable state.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// tickerPattern matches valid bare ticker symbols.
// Allows: uppercase letters, digits, dots (BRK.A), hyphens (BF-B)
// Max length: 10 characters (covers most exchanges)
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// pairPattern matches slashed instrument pairs such as EUR/USD, XAU/USD
// or BTC/USD. Each leg follows the bare-ticker rules.
var pairPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}/[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// ValidateTicker validates a bare ticker symbol (no pair slash).
//
// Valid tickers:
//   - 1-10 characters
//   - Uppercase letters A-Z
//   - Digits 0-9
//   - Dots (.) for class shares like BRK.A
//   - Hyphens (-) for class shares like BF-B
//
// Returns an error if the ticker is invalid.
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return fmt.Errorf("ticker cannot be empty")
	}

	if !tickerPattern.MatchString(ticker) {
		return fmt.Errorf("invalid ticker format: %q (must be 1-10 uppercase alphanumeric chars, dots, or hyphens)", ticker)
	}

	return nil
}

// ValidateSymbol validates a market symbol: either a bare ticker (AAPL)
// or a slashed pair (XAU/USD, EUR/USD, BTC/USD).
//
// Use this wherever an instrument identifier flows into a Flux query,
// a cache key, or an upstream tool argument:
//
//	if err := validation.ValidateSymbol(sym); err != nil {
//	    return nil, fmt.Errorf("invalid symbol: %w", err)
//	}
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}

	if tickerPattern.MatchString(symbol) || pairPattern.MatchString(symbol) {
		return nil
	}

	return fmt.Errorf("invalid symbol format: %q (expected a ticker like AAPL or a pair like EUR/USD)", symbol)
}

// ValidateSymbols validates multiple market symbols.
// Returns an error listing all invalid symbols if any fail validation.
func ValidateSymbols(symbols []string) error {
	var invalid []string
	for _, s := range symbols {
		if err := ValidateSymbol(s); err != nil {
			invalid = append(invalid, s)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid symbols: %v", invalid)
	}
	return nil
}

// SanitizeSymbol normalizes and validates a market symbol.
// Returns the uppercase symbol if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safe, err := validation.SanitizeSymbol(userInput)
//	if err != nil {
//	    return err
//	}
//	// safe is uppercase and validated
func SanitizeSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateSymbol(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
