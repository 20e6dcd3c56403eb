// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ttl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/storage"
)

// =============================================================================
// Janitor
// =============================================================================

// JanitorConfig holds batch limits for a single sweep.
//
// # Fields
//
//   - SessionBatchSize: Maximum sessions deleted per sweep. Default: 100.
//   - CacheBatchSize: Maximum cache rows deleted per sweep. Default: 1000.
type JanitorConfig struct {
	SessionBatchSize int
	CacheBatchSize   int
}

// DefaultJanitorConfig returns production-ready batch limits.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		SessionBatchSize: 100,
		CacheBatchSize:   1000,
	}
}

// SweepResult summarizes one sweep for logging and the admin surface.
type SweepResult struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	SessionsFound   int       `json:"sessions_found"`
	SessionsDeleted int       `json:"sessions_deleted"`
	CacheFound      int       `json:"cache_found"`
	CacheDeleted    int       `json:"cache_deleted"`
}

// Duration returns the total duration of the sweep.
func (r *SweepResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// DurationMs returns the duration in milliseconds for logging.
func (r *SweepResult) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

// Janitor deletes expired sessions and expired cache rows.
//
// # Description
//
// Expiry is decided against the store's own timestamps: a session is removed
// when its last activity is at least the inactivity timeout ago (inclusive,
// matching the gate's read-side check) and a cache row when its TTL has
// lapsed. Deletions happen one row per transaction so a sweep never blocks a
// request handler on more than a single row lock. Every sweep first clears
// the clock sanity check; a bad clock aborts the sweep with no deletions.
//
// # Thread Safety
//
// Janitor is safe for concurrent use; each sweep is independent.
type Janitor struct {
	store          storage.Store
	sessionTimeout time.Duration
	clock          ClockChecker
	config         JanitorConfig
}

// NewJanitor creates a Janitor over the given store.
//
// # Inputs
//
//   - store: The session and cache row store.
//   - sessionTimeout: Inactivity timeout after which sessions expire.
//   - clock: Sanity checker consulted before every sweep. Pass
//     NewNoopClockChecker() to disable the guard.
//   - config: Batch limits; zero values fall back to defaults.
func NewJanitor(store storage.Store, sessionTimeout time.Duration, clock ClockChecker, config JanitorConfig) *Janitor {
	if config.SessionBatchSize <= 0 {
		config.SessionBatchSize = DefaultJanitorConfig().SessionBatchSize
	}
	if config.CacheBatchSize <= 0 {
		config.CacheBatchSize = DefaultJanitorConfig().CacheBatchSize
	}
	return &Janitor{
		store:          store,
		sessionTimeout: sessionTimeout,
		clock:          clock,
		config:         config,
	}
}

// SweepSessions removes sessions idle past the inactivity timeout.
func (j *Janitor) SweepSessions(ctx context.Context) (SweepResult, error) {
	result := SweepResult{StartTime: time.Now()}

	now, err := j.clock.CurrentTime()
	if err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("session sweep aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		result.EndTime = time.Now()
		return result, err
	}

	cutoff := now.UTC().Add(-j.sessionTimeout)
	found, err := j.store.CountSessionsLastActiveBefore(cutoff)
	if err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("failed to count expired sessions: %w", err)
	}
	result.SessionsFound = found

	if found > 0 {
		slog.Debug("Found expired sessions", "count", found, "cutoff", cutoff.Format(time.RFC3339))
		deleted, err := j.store.DeleteSessionsLastActiveBefore(cutoff, j.config.SessionBatchSize)
		result.SessionsDeleted = deleted
		if err != nil {
			result.EndTime = time.Now()
			return result, fmt.Errorf("failed to delete expired sessions: %w", err)
		}
	}

	result.EndTime = time.Now()
	return result, nil
}

// SweepCache removes cache rows whose TTL has lapsed.
func (j *Janitor) SweepCache(ctx context.Context) (SweepResult, error) {
	result := SweepResult{StartTime: time.Now()}

	now, err := j.clock.CurrentTime()
	if err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("cache sweep aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		result.EndTime = time.Now()
		return result, err
	}

	stats, err := j.store.CacheStats(now.UTC())
	if err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("failed to count expired cache rows: %w", err)
	}
	result.CacheFound = stats.Expired

	if stats.Expired > 0 {
		slog.Debug("Found expired cache rows", "count", stats.Expired)
		deleted, err := j.store.DeleteCacheExpiredBefore(now.UTC(), j.config.CacheBatchSize)
		result.CacheDeleted = deleted
		if err != nil {
			result.EndTime = time.Now()
			return result, fmt.Errorf("failed to delete expired cache rows: %w", err)
		}
	}

	result.EndTime = time.Now()
	return result, nil
}

// Sweep runs both phases back to back and merges the results.
func (j *Janitor) Sweep(ctx context.Context) (SweepResult, error) {
	combined := SweepResult{StartTime: time.Now()}

	sessions, err := j.SweepSessions(ctx)
	combined.SessionsFound = sessions.SessionsFound
	combined.SessionsDeleted = sessions.SessionsDeleted
	if err != nil {
		combined.EndTime = time.Now()
		return combined, err
	}

	cache, err := j.SweepCache(ctx)
	combined.CacheFound = cache.CacheFound
	combined.CacheDeleted = cache.CacheDeleted
	if err != nil {
		combined.EndTime = time.Now()
		return combined, err
	}

	combined.EndTime = time.Now()
	return combined, nil
}
