// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package modlog

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/wardenmod/warden/internal/logging"
)

// entryKeyPrefix orders entries by timestamp; the uuid suffix disambiguates
// same-nanosecond writes.
const entryKeyPrefix = "modlog:v1:"

// BadgerStore persists moderation-log entries in the shared badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a store over an open badger handle.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func entryKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", entryKeyPrefix, ts.UnixNano(), id))
}

// Append writes one entry. Missing id and timestamp are filled in.
func (s *BadgerStore) Append(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("marshal modlog entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.Timestamp, entry.ID), data)
	})
	if err != nil {
		return fmt.Errorf("write modlog entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *BadgerStore) Recent(limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(entryKeyPrefix)
		// Reverse iteration seeks past the last key in the prefix range.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(entries) < limit; it.Next() {
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan modlog: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan drops entries whose timestamp is before cutoff and returns
// the count dropped. Key order means the scan can stop at the first young
// entry.
func (s *BadgerStore) DeleteOlderThan(cutoff time.Time) (int, error) {
	boundary := []byte(fmt.Sprintf("%s%020d:", entryKeyPrefix, cutoff.UnixNano()))
	var old [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(entryKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(boundary) {
				break
			}
			old = append(old, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan modlog for retention: %w", err)
	}

	dropped := 0
	for _, key := range old {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			continue
		}
		dropped++
	}

	if dropped > 0 {
		logging.Info().Int("dropped", dropped).Msg("expired moderation log entries removed")
	}
	return dropped, nil
}
