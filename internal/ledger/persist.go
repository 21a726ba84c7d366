// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package ledger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/metrics"
)

// recordKeyPrefix versions the durable slot so a future schema can migrate
// or ignore old records without key collisions.
const recordKeyPrefix = "actor:v1:"

// Diagnostic codes for persistence failure classes. Operators alert on these.
const (
	codeParseError       = "record_parse_error"
	codeIdentityMismatch = "record_identity_mismatch"
	codeReadError        = "record_read_error"
	codeResetOversize    = "record_reset_oversize"
	codeWriteError       = "record_write_error"
)

// ErrIdentityMismatch is returned by load when the stored record belongs to
// a different actor than the requester.
var ErrIdentityMismatch = errors.New("stored record identity mismatch")

// persister serializes actor records into the badger durable slot, enforcing
// the serialized size cap with a trim-then-reset recovery strategy.
type persister struct {
	db       *badger.DB
	maxBytes int
}

func newPersister(db *badger.DB, maxBytes int) *persister {
	return &persister{db: db, maxBytes: maxBytes}
}

func recordKey(id string) []byte {
	return []byte(recordKeyPrefix + id)
}

// save writes the record to the durable slot. No-op unless dirty. If the
// serialized record exceeds the cap, bounded history is trimmed and the
// record re-serialized; if it is still oversized it is reset to defaults --
// data loss over a corrupt or unsaveable store, deliberately. The caller
// must hold the record's mutex.
func (p *persister) save(rec *ActorRecord) error {
	if !rec.Dirty() {
		return nil
	}

	outcome := "ok"
	data, err := json.Marshal(rec)
	if err != nil {
		metrics.RecordSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal actor record: %w", err)
	}

	if len(data) > p.maxBytes {
		rec.trimForSize()
		data, err = json.Marshal(rec)
		if err != nil {
			metrics.RecordSaves.WithLabelValues("error").Inc()
			return fmt.Errorf("marshal trimmed actor record: %w", err)
		}
		outcome = "trimmed"
	}

	if len(data) > p.maxBytes {
		logging.Warn().
			Str("code", codeResetOversize).
			Str("actor_id", rec.Identity.ID).
			Str("actor_name", rec.Identity.Name).
			Int("bytes", len(data)).
			Int("cap", p.maxBytes).
			Msg("actor record oversized after trim, resetting to defaults")
		rec.resetToDefaults()
		data, err = json.Marshal(rec)
		if err != nil {
			metrics.RecordSaves.WithLabelValues("error").Inc()
			return fmt.Errorf("marshal reset actor record: %w", err)
		}
		outcome = "reset"
	}

	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Identity.ID), data)
	})
	if err != nil {
		metrics.RecordSaves.WithLabelValues("error").Inc()
		logging.Error().
			Err(err).
			Str("code", codeWriteError).
			Str("actor_id", rec.Identity.ID).
			Msg("durable record write failed")
		return fmt.Errorf("write actor record: %w", err)
	}

	rec.clearDirty()
	metrics.RecordSaves.WithLabelValues(outcome).Inc()
	return nil
}

// load reads the durable slot for the identity. Absence, parse failure, and
// identity mismatch all return a nil record with a distinct diagnostic per
// failure class; the caller default-initializes. The error return is
// diagnostic only; no load failure is fatal.
func (p *persister) load(identity Identity) (*ActorRecord, error) {
	var data []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(identity.ID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		metrics.RecordLoads.WithLabelValues("absent").Inc()
		return nil, nil
	case err != nil:
		metrics.RecordLoads.WithLabelValues("read_error").Inc()
		logging.Error().
			Err(err).
			Str("code", codeReadError).
			Str("actor_id", identity.ID).
			Msg("durable record read failed, falling back to defaults")
		return nil, fmt.Errorf("read actor record: %w", err)
	}

	rec := NewRecord(identity)
	if err := json.Unmarshal(data, rec); err != nil {
		metrics.RecordLoads.WithLabelValues("parse_error").Inc()
		logging.Warn().
			Err(err).
			Str("code", codeParseError).
			Str("actor_id", identity.ID).
			Msg("stored actor record unparseable, falling back to defaults")
		return nil, fmt.Errorf("parse actor record: %w", err)
	}

	if rec.SchemaVersion > RecordSchemaVersion || rec.Identity.ID != identity.ID {
		metrics.RecordLoads.WithLabelValues("identity_mismatch").Inc()
		logging.Warn().
			Str("code", codeIdentityMismatch).
			Str("actor_id", identity.ID).
			Str("stored_id", rec.Identity.ID).
			Int("stored_schema", rec.SchemaVersion).
			Msg("stored actor record does not match requester, falling back to defaults")
		return nil, ErrIdentityMismatch
	}

	// Maps can be nil after unmarshal of a sparse record.
	if rec.Flags == nil {
		rec.Flags = make(map[string]*FlagEntry)
	}
	if rec.Escalation == nil {
		rec.Escalation = make(map[string]*EscalationState)
	}
	if rec.LastViolation == nil {
		rec.LastViolation = make(map[string]map[string]any)
	}

	// Names can change between sessions; the durable key is the id.
	rec.Identity.Name = identity.Name

	metrics.RecordLoads.WithLabelValues("hit").Inc()
	return rec, nil
}

// delete removes the durable slot for an actor id. Used by administrative
// tooling, not the normal lifecycle.
func (p *persister) delete(id string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(recordKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
