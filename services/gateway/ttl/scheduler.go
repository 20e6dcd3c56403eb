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
	"sync"
	"time"
)

// =============================================================================
// Sweep Scheduler
// =============================================================================

// SweepFunc performs one sweep and reports what it did.
type SweepFunc func(ctx context.Context) (SweepResult, error)

// Scheduler drives a SweepFunc on a fixed interval.
//
// # Description
//
// Manages the lifecycle of a background goroutine that periodically runs a
// sweep. Uses the ticker + done channel pattern for graceful shutdown. The
// gateway runs two of these: one over sessions and one over the cache, on
// independent intervals.
//
// # Thread Safety
//
// All public methods are thread-safe; a mutex protects state transitions.
type Scheduler struct {
	name     string
	interval time.Duration
	run      SweepFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewScheduler creates a scheduler for the given sweep.
//
// # Inputs
//
//   - name: Label used in log lines, e.g. "sessions" or "cache".
//   - interval: Time between sweeps.
//   - run: The sweep to execute.
//
// # Outputs
//
//   - *Scheduler: Ready to Start().
//
// # Examples
//
//	janitor := ttl.NewJanitor(store, cfg.SessionTimeout, ttl.NewClockChecker(), ttl.DefaultJanitorConfig())
//	sweeper := ttl.NewScheduler("sessions", cfg.SessionCleanupInterval, janitor.SweepSessions)
//	if err := sweeper.Start(ctx); err != nil {
//	    return err
//	}
//	defer sweeper.Stop()
func NewScheduler(name string, interval time.Duration, run SweepFunc) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		run:      run,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.
//
// # Description
//
// Starts a goroutine that sweeps immediately and then at the configured
// interval until Stop() is called or the context is cancelled.
//
// # Outputs
//
//   - error: Non-nil if the scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("%s sweep scheduler is already running", s.name)
	}
	s.running = true
	s.done = make(chan struct{}) // Reset done channel for potential restart
	s.mu.Unlock()

	slog.Info("Sweep scheduler starting",
		"sweep", s.name,
		"interval", s.interval.String(),
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the scheduler to stop. Safe to call multiple times.
//
// # Limitations
//
//   - Does not interrupt an in-progress sweep; it finishes its batch.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil // Already stopped
	}

	slog.Info("Sweep scheduler stopping", "sweep", s.name)
	close(s.done)
	s.running = false
	return nil
}

// RunNow triggers an immediate sweep without waiting for the next tick.
// Useful for the admin surface and tests; does not affect the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (SweepResult, error) {
	return s.run(ctx)
}

// runLoop is the scheduler goroutine.
func (s *Scheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run an initial sweep immediately on start
	s.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sweep scheduler stopped (context cancelled)", "sweep", s.name)
			return
		case <-s.done:
			slog.Info("Sweep scheduler stopped (stop requested)", "sweep", s.name)
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs a single sweep; errors are logged, never fatal to the loop.
func (s *Scheduler) executeSweep(ctx context.Context) {
	result, err := s.run(ctx)
	if err != nil {
		slog.Error("Sweep failed", "sweep", s.name, "error", err)
		return
	}

	// Only log at Info when something was actually removed
	if result.SessionsFound > 0 || result.CacheFound > 0 {
		slog.Info("Sweep completed",
			"sweep", s.name,
			"sessions_found", result.SessionsFound,
			"sessions_deleted", result.SessionsDeleted,
			"cache_found", result.CacheFound,
			"cache_deleted", result.CacheDeleted,
			"duration_ms", result.DurationMs(),
		)
	} else {
		slog.Debug("Sweep completed (nothing expired)", "sweep", s.name)
	}
}
