// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the lifecycle of conversational sessions: creation,
// expiry, the sliding-window rate counter, and the rolling context window
// that makes follow-up queries resolvable. All durable state lives in the
// storage layer; this package only decides what the rows mean.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianMarkets/services/gateway/storage"
)

// maxContextTurns bounds the rolling context window kept per session.
const maxContextTurns = 10

var (
	// ErrSessionNotFound indicates no row exists for the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the row exists but its inactivity window
	// has lapsed. The row is left in place; the janitor owns deletion.
	ErrSessionExpired = errors.New("session expired")
)

// Gate mediates every read and mutation of session rows.
//
// # Description
//
// Gate enforces the two invariants the chat pipeline depends on: a session
// older than its inactivity timeout is never handed out, and the rate
// counter is only ever advanced under row exclusion so that concurrent
// requests cannot slip past the limit. It performs no retries of its own;
// store failures bubble up for the caller to classify.
//
// # Thread Safety
//
// Gate is safe for concurrent use. Atomicity of read-modify-write
// operations is delegated to the store's row-level transactions.
type Gate struct {
	store      storage.SessionStore
	timeout    time.Duration
	rateWindow time.Duration

	// now is swapped out by tests to pin clock-sensitive behavior.
	now func() time.Time
}

// NewGate creates a Gate over the given store.
//
// # Inputs
//
//   - store: The session row store.
//   - timeout: Inactivity timeout after which sessions expire.
//   - rateWindow: The sliding window for the request counter.
//
// # Outputs
//
//   - *Gate: The configured gate.
func NewGate(store storage.SessionStore, timeout, rateWindow time.Duration) *Gate {
	return &Gate{
		store:      store,
		timeout:    timeout,
		rateWindow: rateWindow,
		now:        time.Now,
	}
}

// Create allocates a fresh session.
//
// # Description
//
// The identifier is an opaque UUID. Both timestamps and the rate window
// start at now, the counter at zero, the context empty. The caller derives
// expires_at via ExpiresAt.
//
// # Inputs
//
//   - userID: Optional owner identifier, empty for anonymous sessions.
//   - metadata: Optional opaque key/value pairs stored with the row.
//
// # Outputs
//
//   - *datatypes.Session: The persisted session.
//   - error: Non-nil if the store write fails.
func (g *Gate) Create(userID string, metadata map[string]string) (*datatypes.Session, error) {
	now := g.now().UTC()
	session := &datatypes.Session{
		ID:                 uuid.NewString(),
		UserID:             userID,
		CreatedAt:          now,
		LastActivity:       now,
		Context:            []datatypes.TurnContext{},
		RequestCount:       0,
		RequestWindowStart: now,
		Metadata:           metadata,
	}
	if err := g.store.PutSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the session for id, or ErrSessionNotFound / ErrSessionExpired.
//
// # Description
//
// Expiry is checked against last_activity with an inclusive boundary: a
// session touched exactly timeout ago is already expired. Expired rows are
// NOT deleted here; the janitor sweeps them so that Get never competes with
// request handlers for write locks.
func (g *Gate) Get(id string) (*datatypes.Session, error) {
	session, err := g.store.GetSession(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if g.expired(session) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Touch sets last_activity to now, pushing the expiry horizon forward.
func (g *Gate) Touch(id string) error {
	_, err := g.store.UpdateSession(id, func(s *datatypes.Session) error {
		s.LastActivity = g.now().UTC()
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// ConsumeQuota advances the rate counter and reports where it landed.
//
// # Description
//
// Runs under row exclusion: if the window has lapsed the counter resets to
// 1 and the window restarts at now, otherwise the counter increments. The
// returned count is the post-increment value; the caller compares it to the
// configured limit and, when over, surfaces the retry delay. Consuming
// before any interpretation means malformed requests still count against
// the quota.
//
// # Outputs
//
//   - count: The request count after this consumption.
//   - retryAfterSeconds: Whole seconds until the window resets, >= 0.
//   - error: ErrSessionNotFound, or a store failure.
//
// # Limitations
//
//   - The count may transiently reach limit+1; it never exceeds it for a
//     single consumer because the increment serializes per row.
func (g *Gate) ConsumeQuota(id string) (count, retryAfterSeconds int, err error) {
	_, err = g.store.UpdateSession(id, func(s *datatypes.Session) error {
		now := g.now().UTC()
		if now.Sub(s.RequestWindowStart) >= g.rateWindow {
			s.RequestCount = 1
			s.RequestWindowStart = now
		} else {
			s.RequestCount++
		}
		count = s.RequestCount
		elapsed := int(now.Sub(s.RequestWindowStart).Seconds())
		retryAfterSeconds = int(g.rateWindow.Seconds()) - elapsed
		if retryAfterSeconds < 0 {
			retryAfterSeconds = 0
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return 0, 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return count, retryAfterSeconds, nil
}

// AppendContext appends a completed turn to the session's rolling window.
//
// # Description
//
// The window keeps the most recent turns only: the stored context is
// truncated to the newest nine entries before the new turn is appended, so
// the row never holds more than ten. The append runs atomically with the
// truncation.
func (g *Gate) AppendContext(id string, turn datatypes.TurnContext) error {
	_, err := g.store.UpdateSession(id, func(s *datatypes.Session) error {
		if len(s.Context) >= maxContextTurns {
			s.Context = s.Context[len(s.Context)-(maxContextTurns-1):]
		}
		s.Context = append(s.Context, turn)
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Delete removes the session row. Returns whether a row existed.
func (g *Gate) Delete(id string) (bool, error) {
	return g.store.DeleteSession(id)
}

// ExpiresAt derives the moment the session lapses if left untouched.
func (g *Gate) ExpiresAt(s *datatypes.Session) time.Time {
	return s.LastActivity.Add(g.timeout)
}

// Timeout reports the configured inactivity timeout.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

func (g *Gate) expired(s *datatypes.Session) bool {
	return g.now().UTC().Sub(s.LastActivity) >= g.timeout
}
