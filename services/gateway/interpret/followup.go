// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpret

import (
	"log/slog"
	"regexp"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

// followUpPatterns mark a query as referring back to an earlier subject:
// pronouns ("its RSI?"), elision ("the same but weekly"), and continuation
// phrasing ("what about volume too").
var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bits?\b`), // "it", "its"
	regexp.MustCompile(`\bthat\b`),
	regexp.MustCompile(`\bthe same\b`),
	regexp.MustCompile(`\bthis\b`),
	regexp.MustCompile(`\bsame stock\b`),
	regexp.MustCompile(`\bsame symbol\b`),
	regexp.MustCompile(`\band what about\b`),
	regexp.MustCompile(`\bhow about\b`),
	regexp.MustCompile(`\bwhat about\b`),
	regexp.MustCompile(`\balso\b`),
	regexp.MustCompile(`\btoo\b`),
}

// symbolsFromContext resolves a follow-up query against prior turns.
//
// # Description
//
// Called only when the query itself produced no symbols. If the query reads
// like a follow-up, prior turns are walked newest-first and the first turn
// carrying symbols supplies them. A query with no follow-up marker inherits
// nothing: "tell me a joke" after a gold query stays symbol-less.
func symbolsFromContext(lower string, context []datatypes.TurnContext) []string {
	isFollowUp := false
	for _, pattern := range followUpPatterns {
		if pattern.MatchString(lower) {
			isFollowUp = true
			break
		}
	}
	if !isFollowUp {
		return nil
	}

	for i := len(context) - 1; i >= 0; i-- {
		if len(context[i].Symbols) > 0 {
			slog.Debug("Resolved follow-up symbols from context",
				"symbols", context[i].Symbols,
				"turns_back", len(context)-i,
			)
			return context[i].Symbols
		}
	}

	return nil
}
