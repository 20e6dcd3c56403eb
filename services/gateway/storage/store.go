// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage is the single durable home of gateway state: session rows
// and cache rows, both living in one embedded BadgerDB keyspace.
//
// The package exposes row-granular operations only. Higher layers (the
// session gate, the cache) own all semantics; storage guarantees that
// concurrent writes to one row serialize and that a crash/restart yields
// identical observable state modulo the in-flight request.
package storage

import (
	"errors"
	"io"
	"time"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrConflictExhausted is returned when a read-modify-write kept colliding
// with concurrent commits and ran out of retries. Callers treat it like any
// other store failure: surface, never retry.
var ErrConflictExhausted = errors.New("storage: transaction conflict retries exhausted")

// SessionStore is the row store for sessions.
type SessionStore interface {
	// GetSession reads one session row. ErrNotFound when absent.
	GetSession(id string) (*datatypes.Session, error)

	// PutSession writes a full session row (replace semantics).
	PutSession(session *datatypes.Session) error

	// UpdateSession runs fn against the current row value inside one
	// transaction and commits the mutated row. The read-modify-write is
	// serialized against concurrent updates of the same row; fn may be
	// invoked more than once when commits collide. fn returning an error
	// aborts the update and propagates that error.
	UpdateSession(id string, fn func(*datatypes.Session) error) (*datatypes.Session, error)

	// DeleteSession removes the row, reporting whether it existed.
	DeleteSession(id string) (bool, error)

	// ListSessionsByUser returns up to limit sessions owned by userID,
	// in key order. limit <= 0 means no bound.
	ListSessionsByUser(userID string, limit int) ([]*datatypes.Session, error)

	// CountSessionsLastActiveBefore counts rows with last_activity <= cutoff.
	CountSessionsLastActiveBefore(cutoff time.Time) (int, error)

	// DeleteSessionsLastActiveBefore deletes up to batch rows with
	// last_activity <= cutoff, one row per transaction, and returns the
	// number deleted. batch <= 0 means no bound.
	DeleteSessionsLastActiveBefore(cutoff time.Time, batch int) (int, error)
}

// CacheStore is the row store for cache entries.
type CacheStore interface {
	// GetCacheEntry reads one cache row. ErrNotFound when absent.
	GetCacheEntry(key string) (*datatypes.CacheEntry, error)

	// PutCacheEntry upserts a cache row (replace on key collision).
	PutCacheEntry(entry *datatypes.CacheEntry) error

	// DeleteCacheEntry removes the row, reporting whether it existed.
	DeleteCacheEntry(key string) (bool, error)

	// CacheStats scans the cache table and summarizes it relative to now.
	CacheStats(now time.Time) (*datatypes.CacheStats, error)

	// DeleteCacheExpiredBefore deletes up to batch rows whose TTL elapsed
	// at or before now, one row per transaction. Returns the number deleted.
	DeleteCacheExpiredBefore(now time.Time, batch int) (int, error)

	// ClearCache removes every cache row and returns the count.
	ClearCache() (int, error)
}

// Store combines both row stores plus maintenance operations.
type Store interface {
	SessionStore
	CacheStore

	// Backup streams a consistent snapshot of the keyspace to w, returning
	// the version watermark for incremental follow-ups.
	Backup(w io.Writer, since uint64) (uint64, error)

	// Close releases the underlying database.
	Close() error
}
