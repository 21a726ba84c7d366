// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/wardenmod/warden/internal/config"
	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/metrics"
)

// Store is the in-memory actor map plus its durable backing. Records for
// connected actors live in the map; initialization loads them from the
// durable slot, applies pending offline restrictions and purge requests, and
// removal flushes them back out.
type Store struct {
	mu     sync.RWMutex
	actors map[string]*ActorRecord

	cfg     *config.Provider
	persist *persister
	purge   *PurgeQueue
}

// NewStore builds a store over an open badger handle.
func NewStore(db *badger.DB, cfg *config.Provider) *Store {
	return &Store{
		actors:  make(map[string]*ActorRecord),
		cfg:     cfg,
		persist: newPersister(db, cfg.Current().Engine.MaxRecordBytes),
		purge:   NewPurgeQueue(db),
	}
}

// Purge exposes the offline purge queue.
func (s *Store) Purge() *PurgeQueue { return s.purge }

// Get returns the record for a connected actor, or nil if the actor has not
// been initialized.
func (s *Store) Get(id string) *ActorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actors[id]
}

// ActorIDs returns a snapshot of the currently tracked actor ids.
func (s *Store) ActorIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.actors))
	for id := range s.actors {
		ids = append(ids, id)
	}
	return ids
}

// WithActor runs fn with the actor's record under its mutex. Returns false
// if the actor is not tracked. All record mutation outside Store lifecycle
// calls goes through here.
func (s *Store) WithActor(id string, fn func(rec *ActorRecord)) bool {
	rec := s.Get(id)
	if rec == nil {
		return false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	fn(rec)
	return true
}

// EnsureInitialized loads or creates the record for a connecting actor,
// applies any configured offline restriction, and consumes any pending purge
// request. Idempotent: a second call for an already-tracked actor returns
// the existing record untouched.
func (s *Store) EnsureInitialized(identity Identity) (*ActorRecord, error) {
	if existing := s.Get(identity.ID); existing != nil {
		return existing, nil
	}

	// Load failures fall back to a default record; the failure class was
	// already logged and counted by the persister.
	rec, _ := s.persist.load(identity)
	if rec == nil {
		rec = NewRecord(identity)
		rec.MarkDirty()
	}

	rec.mu.Lock()
	s.applyOfflineRestriction(rec)

	purged, ok, err := s.purge.Consume(identity)
	if err != nil {
		logging.Error().Err(err).Str("actor_id", identity.ID).Msg("purge queue consume failed")
	}
	if ok {
		rec.ResetAll()
		metrics.PurgeConsumed.Inc()
		logging.Info().
			Str("actor_name", identity.Name).
			Str("actor_id", identity.ID).
			Time("requested_at", purged.RequestedAt).
			Msg("offline purge applied on connect")
	}

	// Persist immediately so an applied purge or restriction survives a
	// crash before the next periodic flush.
	if rec.Dirty() {
		if err := s.persist.save(rec); err != nil {
			logging.Error().Err(err).Str("actor_id", identity.ID).Msg("initial record flush failed")
		}
	}
	rec.mu.Unlock()

	s.mu.Lock()
	// Another initializer may have raced us in; keep theirs.
	if existing := s.actors[identity.ID]; existing != nil {
		s.mu.Unlock()
		return existing, nil
	}
	s.actors[identity.ID] = rec
	s.mu.Unlock()
	return rec, nil
}

// applyOfflineRestriction installs a ban from the offline restriction list
// when the connecting actor matches by id or case-folded name. The caller
// holds the record mutex.
func (s *Store) applyOfflineRestriction(rec *ActorRecord) {
	cfg := s.cfg.Current()
	now := time.Now()
	for i := range cfg.OfflineRestrictions {
		or := &cfg.OfflineRestrictions[i]
		if !matchesRestriction(or, rec.Identity) {
			continue
		}
		if rec.ActiveBan(now) != nil {
			continue
		}

		restriction := &Restriction{
			Reason:   or.Reason,
			IssuedBy: or.IssuedBy,
			IssuedAt: now,
		}
		d, permanent := config.ParseDuration(or.Duration, 0)
		if !permanent && d > 0 {
			expires := now.Add(d)
			restriction.ExpiresAt = &expires
		}
		rec.SetBan(restriction)
		logging.Info().
			Str("actor_name", rec.Identity.Name).
			Str("actor_id", rec.Identity.ID).
			Str("reason", or.Reason).
			Msg("offline restriction applied on connect")
		return
	}
}

func matchesRestriction(or *config.OfflineRestriction, identity Identity) bool {
	if or.ID != "" && or.ID == identity.ID {
		return true
	}
	return or.Name != "" && strings.EqualFold(or.Name, identity.Name)
}

// Remove flushes and evicts a disconnecting actor's record. The flush
// happens before eviction so disconnect-time state is never lost to a crash
// between eviction and the next sweep.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	rec := s.actors[id]
	delete(s.actors, id)
	s.mu.Unlock()

	if rec == nil {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return s.persist.save(rec)
}

// FlushAll persists every dirty tracked record. Used by the periodic flush
// service and at shutdown.
func (s *Store) FlushAll() error {
	var firstErr error
	for _, id := range s.ActorIDs() {
		rec := s.Get(id)
		if rec == nil {
			continue
		}
		rec.mu.Lock()
		err := s.persist.save(rec)
		rec.mu.Unlock()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
