// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianMarkets/services/gateway/datatypes"
)

const (
	sessionPrefix = "session:"
	cachePrefix   = "cache:"

	// maxTxnRetries bounds the optimistic-conflict retry loop of
	// read-modify-write updates. Conflicts only occur between writers of
	// the same row, so a handful of retries is plenty.
	maxTxnRetries = 16
)

// BadgerStore implements Store on an embedded BadgerDB.
//
// Row exclusion comes from Badger's optimistic transactions: a commit that
// collided with a concurrent commit of the same key fails with ErrConflict
// and the read-modify-write is re-run from the fresh value. That loop is the
// mechanism behind the serialized rate-limit increments and context appends;
// genuine I/O failures are returned unwrapped and are never retried.
//
// Expired rows are never removed here on read: the cache serves stale
// payloads on upstream failure and the janitor owns all deletion.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// Open opens (or creates) the Badger keyspace at path.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(newBadgerSlogger())
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory keyspace. Used by tests.
func OpenInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(newBadgerSlogger())
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Backup streams a snapshot of the keyspace to w.
func (s *BadgerStore) Backup(w io.Writer, since uint64) (uint64, error) {
	return s.db.Backup(w, since)
}

// =============================================================================
// Sessions
// =============================================================================

func sessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}

func (s *BadgerStore) GetSession(id string) (*datatypes.Session, error) {
	var session datatypes.Session
	err := s.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, sessionKey(id), &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *BadgerStore) PutSession(session *datatypes.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.ID), raw)
	})
}

func (s *BadgerStore) UpdateSession(id string, fn func(*datatypes.Session) error) (*datatypes.Session, error) {
	key := sessionKey(id)
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		var updated datatypes.Session
		err := s.db.Update(func(txn *badger.Txn) error {
			if err := readJSON(txn, key, &updated); err != nil {
				return err
			}
			if err := fn(&updated); err != nil {
				return err
			}
			raw, err := json.Marshal(&updated)
			if err != nil {
				return fmt.Errorf("marshal session %s: %w", id, err)
			}
			return txn.Set(key, raw)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, ErrConflictExhausted
}

func (s *BadgerStore) DeleteSession(id string) (bool, error) {
	return s.deleteKey(sessionKey(id))
}

func (s *BadgerStore) ListSessionsByUser(userID string, limit int) ([]*datatypes.Session, error) {
	var sessions []*datatypes.Session
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOpts(sessionPrefix))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var session datatypes.Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			}); err != nil {
				return err
			}
			if session.UserID != userID {
				continue
			}
			sessions = append(sessions, &session)
			if limit > 0 && len(sessions) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *BadgerStore) CountSessionsLastActiveBefore(cutoff time.Time) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOpts(sessionPrefix))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var session datatypes.Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			}); err != nil {
				return err
			}
			if !session.LastActivity.After(cutoff) {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *BadgerStore) DeleteSessionsLastActiveBefore(cutoff time.Time, batch int) (int, error) {
	keys, err := s.collectKeys(sessionPrefix, batch, func(val []byte) (bool, error) {
		var session datatypes.Session
		if err := json.Unmarshal(val, &session); err != nil {
			return false, err
		}
		return !session.LastActivity.After(cutoff), nil
	})
	if err != nil {
		return 0, err
	}
	return s.deleteKeysOneByOne(keys)
}

// =============================================================================
// Cache
// =============================================================================

func cacheKey(key string) []byte {
	return []byte(cachePrefix + key)
}

func (s *BadgerStore) GetCacheEntry(key string) (*datatypes.CacheEntry, error) {
	var entry datatypes.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, cacheKey(key), &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *BadgerStore) PutCacheEntry(entry *datatypes.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", entry.Key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(entry.Key), raw)
	})
}

func (s *BadgerStore) DeleteCacheEntry(key string) (bool, error) {
	return s.deleteKey(cacheKey(key))
}

func (s *BadgerStore) CacheStats(now time.Time) (*datatypes.CacheStats, error) {
	stats := &datatypes.CacheStats{ByType: make(map[string]int)}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOpts(cachePrefix))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var entry datatypes.CacheEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			stats.Total++
			stats.ByType[entry.QueryType]++
			if entry.IsFresh(now) {
				stats.Active++
			} else {
				stats.Expired++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *BadgerStore) DeleteCacheExpiredBefore(now time.Time, batch int) (int, error) {
	keys, err := s.collectKeys(cachePrefix, batch, func(val []byte) (bool, error) {
		var entry datatypes.CacheEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return false, err
		}
		return !entry.IsFresh(now), nil
	})
	if err != nil {
		return 0, err
	}
	return s.deleteKeysOneByOne(keys)
}

func (s *BadgerStore) ClearCache() (int, error) {
	keys, err := s.collectKeys(cachePrefix, 0, func([]byte) (bool, error) {
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return s.deleteKeysOneByOne(keys)
}

// =============================================================================
// Internals
// =============================================================================

func prefixIterOpts(prefix string) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	return opts
}

func readJSON(txn *badger.Txn, key []byte, dst any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func (s *BadgerStore) deleteKey(key []byte) (bool, error) {
	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// collectKeys scans a prefix in a read transaction and returns the keys whose
// value satisfies match, up to batch keys (batch <= 0 means all).
func (s *BadgerStore) collectKeys(prefix string, batch int, match func(val []byte) (bool, error)) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOpts(prefix))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			ok := false
			if err := item.Value(func(val []byte) error {
				var err error
				ok, err = match(val)
				return err
			}); err != nil {
				return err
			}
			if !ok {
				continue
			}
			keys = append(keys, item.KeyCopy(nil))
			if batch > 0 && len(keys) >= batch {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// deleteKeysOneByOne removes keys one transaction each so no sweep ever holds
// more than a single row lock. A row that vanished between the scan and the
// delete still counts: it is gone either way.
func (s *BadgerStore) deleteKeysOneByOne(keys [][]byte) (int, error) {
	deleted := 0
	for _, key := range keys {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// =============================================================================
// Badger logging bridge
// =============================================================================

// badgerSlogger routes Badger's internal logging into slog. Badger is chatty
// at Info during compaction, so its Info goes to Debug.
type badgerSlogger struct {
	logger *slog.Logger
}

func newBadgerSlogger() *badgerSlogger {
	return &badgerSlogger{logger: slog.Default().With("component", "badger")}
}

func (b *badgerSlogger) Errorf(format string, args ...any) {
	b.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerSlogger) Warningf(format string, args ...any) {
	b.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerSlogger) Infof(format string, args ...any) {
	b.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerSlogger) Debugf(format string, args ...any) {
	b.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
