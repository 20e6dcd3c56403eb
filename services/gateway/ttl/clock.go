// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ttl removes rows whose time has run out: sessions idle past their
// inactivity timeout and cache entries past their TTL. A background scheduler
// drives the sweeps; a clock sanity check guards against deleting live data
// because the system time jumped.
package ttl

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Clock Sanity Checking
// =============================================================================

// ClockChecker validates the system time before expiry decisions.
//
// # Description
//
// Every sweep compares row timestamps against "now". If the system clock is
// set to the future, live sessions and warm cache rows get deleted; if set
// to the past, nothing ever expires and the store grows without bound. The
// checker rejects both by validating bounds and watching for jumps between
// consecutive checks.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type ClockChecker interface {
	// CheckClockSanity verifies the system clock is reasonable.
	//
	// # Outputs
	//
	//   - error: Non-nil if the clock is outside bounds or jumped more
	//     than the configured threshold since the previous check.
	//
	// # Limitations
	//
	//   - Slow drift inside the bounds passes undetected.
	CheckClockSanity() error

	// CurrentTime returns the current time if the clock is sane.
	//
	// # Description
	//
	// Use this instead of time.Now() in expiry-sensitive code paths so a
	// bad clock aborts the sweep instead of feeding it a wrong cutoff.
	CurrentTime() (time.Time, error)

	// ResetJumpDetection resets the jump detection baseline. Call after a
	// known legitimate time change (NTP sync, resume from sleep).
	ResetJumpDetection()
}

// ClockConfig contains bounds and thresholds for clock validation.
type ClockConfig struct {
	MinValidTime    time.Time
	MaxValidTime    time.Time
	MaxBackwardJump time.Duration
	MaxForwardJump  time.Duration
}

// DefaultClockConfig returns bounds suitable for production use.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		MinValidTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2035, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}
}

// clockChecker implements ClockChecker.
type clockChecker struct {
	config            ClockConfig
	lastKnownGoodTime time.Time
	mu                sync.RWMutex
	checkCount        int64
}

// NewClockChecker creates a clock checker with default configuration.
func NewClockChecker() ClockChecker {
	return NewClockCheckerWithConfig(DefaultClockConfig())
}

// NewClockCheckerWithConfig creates a clock checker with custom bounds.
func NewClockCheckerWithConfig(config ClockConfig) ClockChecker {
	return &clockChecker{
		config:            config,
		lastKnownGoodTime: time.Now(),
		checkCount:        0,
	}
}

// CheckClockSanity verifies the system clock is reasonable.
//
// # Description
//
// Performs three validations:
//  1. Current time >= MinValidTime (not in the distant past)
//  2. Current time <= MaxValidTime (not in the distant future)
//  3. No suspicious jump from the last known good time
//
// On the first call or after ResetJumpDetection(), jump detection is
// skipped.
func (c *clockChecker) CheckClockSanity() error {
	now := time.Now()

	if now.Before(c.config.MinValidTime) {
		return fmt.Errorf("clock sanity: time %v is before minimum valid time %v (possible clock set to past)",
			now.Format(time.RFC3339), c.config.MinValidTime.Format(time.RFC3339))
	}

	if now.After(c.config.MaxValidTime) {
		return fmt.Errorf("clock sanity: time %v is after maximum valid time %v (possible clock set to future)",
			now.Format(time.RFC3339), c.config.MaxValidTime.Format(time.RFC3339))
	}

	c.mu.RLock()
	lastGood := c.lastKnownGoodTime
	checkCount := c.checkCount
	c.mu.RUnlock()

	if checkCount > 0 {
		timeDiff := now.Sub(lastGood)

		if timeDiff < -c.config.MaxBackwardJump {
			return fmt.Errorf("clock sanity: suspicious backward jump of %v detected (max allowed: %v)",
				-timeDiff, c.config.MaxBackwardJump)
		}

		if timeDiff > c.config.MaxForwardJump {
			return fmt.Errorf("clock sanity: suspicious forward jump of %v detected (max allowed: %v)",
				timeDiff, c.config.MaxForwardJump)
		}
	}

	c.mu.Lock()
	c.lastKnownGoodTime = now
	c.checkCount++
	c.mu.Unlock()

	return nil
}

// CurrentTime returns the current time if the clock is sane.
func (c *clockChecker) CurrentTime() (time.Time, error) {
	if err := c.CheckClockSanity(); err != nil {
		slog.Warn("clock sanity check failed",
			"error", err,
		)
		return time.Time{}, err
	}
	return time.Now(), nil
}

// ResetJumpDetection resets the jump detection baseline.
func (c *clockChecker) ResetJumpDetection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastKnownGoodTime = time.Now()
	c.checkCount = 0

	slog.Info("clock checker: jump detection reset",
		"new_baseline", c.lastKnownGoodTime.Format(time.RFC3339),
	)
}

// =============================================================================
// No-op Clock Checker (for testing)
// =============================================================================

// noopClockChecker always passes sanity checks.
type noopClockChecker struct{}

// NewNoopClockChecker returns a checker that performs no validation. Use in
// tests or when the deployment has external guarantees about the clock.
func NewNoopClockChecker() ClockChecker {
	return &noopClockChecker{}
}

// CheckClockSanity always returns nil.
func (n *noopClockChecker) CheckClockSanity() error {
	return nil
}

// CurrentTime returns the current time without validation.
func (n *noopClockChecker) CurrentTime() (time.Time, error) {
	return time.Now(), nil
}

// ResetJumpDetection is a no-op.
func (n *noopClockChecker) ResetJumpDetection() {}
