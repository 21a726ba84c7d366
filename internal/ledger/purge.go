// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/metrics"
)

const purgeKeyPrefix = "purge:v1:"

// PurgeRequest is a pending "reset flags" request for an actor who was not
// connected when an operator asked for the reset.
type PurgeRequest struct {
	ActorName   string    `json:"actor_name"`
	ActorID     string    `json:"actor_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// PurgeQueue is the durable queue of offline purge requests, keyed by
// case-folded actor name so an operator's second request for the same actor
// upserts rather than duplicates.
type PurgeQueue struct {
	db *badger.DB
}

// NewPurgeQueue creates a purge queue over the shared badger handle.
func NewPurgeQueue(db *badger.DB) *PurgeQueue {
	return &PurgeQueue{db: db}
}

func purgeKey(name string) []byte {
	return []byte(purgeKeyPrefix + strings.ToLower(name))
}

// Schedule idempotently records a purge request for the named actor. The id
// may be empty when the operator only knows the name; when present it lets
// the consume path match an actor who renamed before reconnecting.
func (q *PurgeQueue) Schedule(name, id string) error {
	if name == "" {
		return errors.New("purge request requires an actor name")
	}

	req := PurgeRequest{ActorName: name, ActorID: id, RequestedAt: time.Now()}
	data, err := json.Marshal(&req)
	if err != nil {
		return fmt.Errorf("marshal purge request: %w", err)
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(purgeKey(name), data)
	})
	if err != nil {
		return fmt.Errorf("store purge request: %w", err)
	}

	logging.Info().Str("actor_name", name).Msg("offline purge scheduled")
	return nil
}

// Consume removes and returns the pending request for the identity, matching
// first by name key and then by stored actor id. The second return is false
// when nothing was pending. Removal happens in a single transaction, so a
// request is consumed exactly once.
func (q *PurgeQueue) Consume(identity Identity) (*PurgeRequest, bool, error) {
	var req *PurgeRequest

	err := q.db.Update(func(txn *badger.Txn) error {
		key := purgeKey(identity.Name)
		var found PurgeRequest

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			matchKey, match, err := q.findByID(txn, identity.ID)
			if err != nil || match == nil {
				return err
			}
			key, found = matchKey, *match
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &found)
			}); err != nil {
				// An unparseable queue entry is dropped rather than wedging
				// the actor's initialization forever.
				logging.Warn().Err(err).Str("actor_name", identity.Name).Msg("dropping unparseable purge request")
				return txn.Delete(key)
			}
		}

		if err := txn.Delete(key); err != nil {
			return err
		}
		req = &found
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("consume purge request: %w", err)
	}
	return req, req != nil, nil
}

// findByID scans the queue for an entry whose recorded actor id matches.
// The queue is small (operator-driven), so a prefix scan is fine.
func (q *PurgeQueue) findByID(txn *badger.Txn, id string) ([]byte, *PurgeRequest, error) {
	if id == "" {
		return nil, nil, nil
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(purgeKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var req PurgeRequest
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &req)
		}); err != nil {
			continue
		}
		if req.ActorID == id {
			return item.KeyCopy(nil), &req, nil
		}
	}
	return nil, nil, nil
}

// PurgeStale drops requests older than maxAge and returns the count dropped.
// Advisory cleanup bounding the queue's storage footprint; correctness does
// not depend on it.
func (q *PurgeQueue) PurgeStale(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	var stale [][]byte

	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(purgeKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var req PurgeRequest
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &req)
			}); err != nil {
				stale = append(stale, item.KeyCopy(nil))
				continue
			}
			if req.RequestedAt.Before(cutoff) {
				stale = append(stale, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan purge queue: %w", err)
	}

	dropped := 0
	for _, key := range stale {
		err := q.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			continue
		}
		dropped++
	}

	if dropped > 0 {
		metrics.PurgeDroppedStale.Add(float64(dropped))
		logging.Info().Int("dropped", dropped).Msg("stale offline purge requests dropped")
	}
	return dropped, nil
}

// Pending returns the number of queued purge requests.
func (q *PurgeQueue) Pending() (int, error) {
	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(purgeKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
