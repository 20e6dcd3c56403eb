// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"
	"time"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		maxLen  int
		wantErr bool
	}{
		{"valid", ChatRequest{SessionID: "abc-123_XYZ", Query: "price of gold"}, 5000, false},
		{"uuid session id", ChatRequest{SessionID: "550e8400-e29b-41d4-a716-446655440000", Query: "AAPL quote"}, 5000, false},
		{"session id length 1", ChatRequest{SessionID: "a", Query: "q"}, 5000, false},
		{"session id length 64", ChatRequest{SessionID: strings.Repeat("a", 64), Query: "q"}, 5000, false},

		{"empty session id", ChatRequest{SessionID: "", Query: "q"}, 5000, true},
		{"session id length 65", ChatRequest{SessionID: strings.Repeat("a", 65), Query: "q"}, 5000, true},
		{"session id bad chars", ChatRequest{SessionID: "abc$def", Query: "q"}, 5000, true},
		{"empty query", ChatRequest{SessionID: "abc", Query: ""}, 5000, true},
		{"whitespace query", ChatRequest{SessionID: "abc", Query: "   \t  "}, 5000, true},
		{"query over limit", ChatRequest{SessionID: "abc", Query: strings.Repeat("x", 5001)}, 5000, true},
		{"query at limit", ChatRequest{SessionID: "abc", Query: strings.Repeat("x", 5000)}, 5000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.maxLen)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatRequestValidateFallbackLimit(t *testing.T) {
	req := ChatRequest{SessionID: "abc", Query: strings.Repeat("x", DefaultMaxQueryLength+1)}
	if err := req.Validate(0); err == nil {
		t.Error("expected fallback limit to reject an oversized query")
	}

	req.Query = "what's the price of gold?"
	if err := req.Validate(0); err != nil {
		t.Errorf("expected fallback limit to accept a normal query, got %v", err)
	}
}

func TestCacheEntryFreshness(t *testing.T) {
	entry := CacheEntry{CreatedAt: time.Now(), TTLSeconds: 45}

	if !entry.IsFresh(entry.CreatedAt.Add(44 * time.Second)) {
		t.Error("entry inside TTL should be fresh")
	}

	// exactly created_at + ttl
	if entry.IsFresh(entry.ExpiresAt()) {
		t.Error("entry exactly at created_at + ttl should be stale")
	}
}
