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
	"testing"
	"time"
)

// TestClockChecker_CheckClockSanity_ValidTime tests that a valid system clock
// passes the sanity check.
func TestClockChecker_CheckClockSanity_ValidTime(t *testing.T) {
	checker := NewClockChecker()

	err := checker.CheckClockSanity()
	if err != nil {
		t.Errorf("Valid system clock should pass sanity check, got: %v", err)
	}
}

// TestClockChecker_CheckClockSanity_PastTime tests that a clock set before
// the minimum valid time is rejected.
func TestClockChecker_CheckClockSanity_PastTime(t *testing.T) {
	config := ClockConfig{
		MinValidTime:    time.Now().Add(1 * time.Hour), // Min is in the future = current time is "in the past"
		MaxValidTime:    time.Now().Add(10 * time.Hour),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}
	checker := NewClockCheckerWithConfig(config)

	err := checker.CheckClockSanity()
	if err == nil {
		t.Error("Clock before minimum valid time should fail sanity check")
	}
}

// TestClockChecker_CheckClockSanity_FutureTime tests that a clock set after
// the maximum valid time is rejected.
func TestClockChecker_CheckClockSanity_FutureTime(t *testing.T) {
	config := ClockConfig{
		MinValidTime:    time.Now().Add(-10 * time.Hour),
		MaxValidTime:    time.Now().Add(-1 * time.Hour), // Max is in the past = current time is "in the future"
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}
	checker := NewClockCheckerWithConfig(config)

	err := checker.CheckClockSanity()
	if err == nil {
		t.Error("Clock after maximum valid time should fail sanity check")
	}
}

// TestClockChecker_CheckClockSanity_DetectsBackwardJump tests that a backward
// time jump beyond the threshold is detected.
func TestClockChecker_CheckClockSanity_DetectsBackwardJump(t *testing.T) {
	config := ClockConfig{
		MinValidTime:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2040, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}

	checker := &clockChecker{
		config:            config,
		lastKnownGoodTime: time.Now().Add(2 * time.Hour), // Last check was "2 hours from now"
		checkCount:        1,                             // Not first check
	}

	err := checker.CheckClockSanity()
	if err == nil {
		t.Error("Backward time jump of 2 hours (threshold: 1 hour) should fail")
	}
}

// TestClockChecker_CheckClockSanity_DetectsForwardJump tests that a forward
// time jump beyond the threshold is detected.
func TestClockChecker_CheckClockSanity_DetectsForwardJump(t *testing.T) {
	config := ClockConfig{
		MinValidTime:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2040, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}

	checker := &clockChecker{
		config:            config,
		lastKnownGoodTime: time.Now().Add(-3 * time.Hour), // Last check was 3 hours ago
		checkCount:        1,                              // Not first check
	}

	err := checker.CheckClockSanity()
	if err == nil {
		t.Error("Forward time jump of 3 hours (threshold: 2 hours) should fail")
	}
}

// TestClockChecker_CurrentTime_ReturnsTimeWhenSane tests that CurrentTime
// returns a recent timestamp when the clock passes validation.
func TestClockChecker_CurrentTime_ReturnsTimeWhenSane(t *testing.T) {
	checker := NewClockChecker()

	got, err := checker.CurrentTime()
	if err != nil {
		t.Fatalf("CurrentTime should succeed with a sane clock, got: %v", err)
	}
	if d := time.Since(got); d < 0 || d > time.Minute {
		t.Errorf("CurrentTime returned an implausible timestamp: %v", got)
	}
}

// TestClockChecker_CurrentTime_FailsWhenInsane tests that CurrentTime refuses
// to hand out a timestamp when validation fails.
func TestClockChecker_CurrentTime_FailsWhenInsane(t *testing.T) {
	config := ClockConfig{
		MinValidTime:    time.Now().Add(1 * time.Hour),
		MaxValidTime:    time.Now().Add(10 * time.Hour),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}
	checker := NewClockCheckerWithConfig(config)

	_, err := checker.CurrentTime()
	if err == nil {
		t.Error("CurrentTime should fail when the sanity check fails")
	}
}

// TestClockChecker_ResetJumpDetection_ClearsBaseline tests that a reset
// forgives an otherwise suspicious jump.
func TestClockChecker_ResetJumpDetection_ClearsBaseline(t *testing.T) {
	config := ClockConfig{
		MinValidTime:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2040, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}

	checker := &clockChecker{
		config:            config,
		lastKnownGoodTime: time.Now().Add(-3 * time.Hour),
		checkCount:        1,
	}

	if err := checker.CheckClockSanity(); err == nil {
		t.Fatal("Setup failure: jump should have been detected before reset")
	}

	checker.ResetJumpDetection()

	if err := checker.CheckClockSanity(); err != nil {
		t.Errorf("Jump detection should be skipped after reset, got: %v", err)
	}
}

// TestNoopClockChecker_AlwaysPasses tests the no-op checker used in tests.
func TestNoopClockChecker_AlwaysPasses(t *testing.T) {
	checker := NewNoopClockChecker()

	if err := checker.CheckClockSanity(); err != nil {
		t.Errorf("Noop checker should always pass, got: %v", err)
	}
	if _, err := checker.CurrentTime(); err != nil {
		t.Errorf("Noop checker CurrentTime should always succeed, got: %v", err)
	}
	checker.ResetJumpDetection()
}
