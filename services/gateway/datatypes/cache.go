// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"time"
)

// CacheEntry is one durable cache row. Key is the hex content-hash of
// (query type, canonical params); ResponseData is the opaque upstream
// payload, kept as raw JSON so it round-trips byte-exact.
type CacheEntry struct {
	Key          string          `json:"key"`
	QueryType    string          `json:"query_type"`
	ResponseData json.RawMessage `json:"response_data"`
	CreatedAt    time.Time       `json:"created_at"`
	TTLSeconds   int             `json:"ttl_seconds"`
}

// ExpiresAt is the instant the entry stops being fresh.
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
}

// IsFresh reports whether the entry is still within its TTL at now.
// The boundary is exclusive: an entry exactly at created_at + ttl is stale.
func (e *CacheEntry) IsFresh(now time.Time) bool {
	return now.Before(e.ExpiresAt())
}

// CacheStats summarizes the cache table for the stats endpoint.
type CacheStats struct {
	Total   int            `json:"total"`
	ByType  map[string]int `json:"by_type"`
	Expired int            `json:"expired"`
	Active  int            `json:"active"`
}
