// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache keys upstream responses by query shape and serves them back
// until their per-type TTL elapses. Entries past their TTL are never served
// as fresh but stay readable as stale fallbacks until the janitor removes
// them.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/storage"
)

// State classifies a lookup outcome.
type State string

const (
	// StateFresh means the entry exists and is within its TTL.
	StateFresh State = "fresh"

	// StateStale means the entry exists but its TTL has elapsed. The
	// payload is still returned so callers can fall back to it when the
	// upstream is unavailable.
	StateStale State = "stale"

	// StateMiss means no entry exists for the key.
	StateMiss State = "miss"
)

// Policy holds the per-type TTLs in seconds.
type Policy struct {
	PriceSeconds      int
	HistoricalSeconds int
	IndicatorSeconds  int
}

// Seconds returns the TTL for a query type. Quote rows age like price rows,
// and unrecognized types get the price TTL as the conservative choice.
func (p Policy) Seconds(queryType string) int {
	switch queryType {
	case "historical":
		return p.HistoricalSeconds
	case "indicator":
		return p.IndicatorSeconds
	default:
		return p.PriceSeconds
	}
}

// Result is one lookup outcome. Payload and CachedAt are only meaningful
// when State is not StateMiss.
type Result struct {
	State    State
	Payload  json.RawMessage
	CachedAt time.Time
}

// Cache is the read-through response cache over the row store.
//
// # Thread Safety
//
// Safe for concurrent use; all state lives in the underlying store.
type Cache struct {
	store  storage.CacheStore
	policy Policy
	now    func() time.Time
}

// New builds a Cache over store with the given TTL policy.
func New(store storage.CacheStore, policy Policy) *Cache {
	return &Cache{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// Key derives the deterministic cache key for a query shape: the hex SHA-256
// of the query type and the canonical JSON encoding of params. Canonical
// here means key-sorted, which json.Marshal guarantees for maps, so callers
// may build params in any order.
func Key(queryType string, params map[string]any) (string, error) {
	blob, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode cache params: %w", err)
	}
	sum := sha256.Sum256([]byte(queryType + ":" + string(blob)))
	return hex.EncodeToString(sum[:]), nil
}

// Lookup reads the entry for (queryType, params) and classifies it against
// the current clock. A missing row is a miss, not an error.
func (c *Cache) Lookup(queryType string, params map[string]any) (Result, error) {
	key, err := Key(queryType, params)
	if err != nil {
		return Result{State: StateMiss}, err
	}

	entry, err := c.store.GetCacheEntry(key)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{State: StateMiss}, nil
	}
	if err != nil {
		return Result{State: StateMiss}, fmt.Errorf("read cache entry: %w", err)
	}

	state := StateStale
	if entry.IsFresh(c.now().UTC()) {
		state = StateFresh
	}
	slog.Debug("Cache lookup", "query_type", queryType, "state", state)

	return Result{
		State:    state,
		Payload:  entry.ResponseData,
		CachedAt: entry.CreatedAt,
	}, nil
}

// Store upserts the payload under the key for (queryType, params), stamping
// it with the current time and the policy TTL for the type. An existing row
// under the same key is replaced.
func (c *Cache) Store(queryType string, params map[string]any, payload json.RawMessage) error {
	key, err := Key(queryType, params)
	if err != nil {
		return err
	}

	entry := &datatypes.CacheEntry{
		Key:          key,
		QueryType:    queryType,
		ResponseData: payload,
		CreatedAt:    c.now().UTC(),
		TTLSeconds:   c.policy.Seconds(queryType),
	}
	if err := c.store.PutCacheEntry(entry); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for (queryType, params), reporting whether
// one existed.
func (c *Cache) Invalidate(queryType string, params map[string]any) (bool, error) {
	key, err := Key(queryType, params)
	if err != nil {
		return false, err
	}
	return c.store.DeleteCacheEntry(key)
}

// Clear drops every cache row and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	return c.store.ClearCache()
}

// Stats summarizes the cache table relative to the current clock.
func (c *Cache) Stats() (*datatypes.CacheStats, error) {
	return c.store.CacheStats(c.now().UTC())
}
