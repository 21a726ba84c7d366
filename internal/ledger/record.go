// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package ledger owns per-actor violation state: the in-memory actor map,
// the durable record slot behind it, and the offline purge queue. All
// mutation of a record happens under its per-actor mutex via Store.WithActor
// or inside Store lifecycle calls, which keeps the escalation engine's
// "fires at most once per threshold crossing" invariant safe.
package ledger

import (
	"sort"
	"sync"
	"time"
)

// RecordSchemaVersion is stamped into persisted records. Loads reject
// records written by an incompatible future schema.
const RecordSchemaVersion = 1

// Caps on the last-violation detail capture, so operator-inspection data can
// never grow a record without bound.
const (
	maxDetailCategories = 16
	maxDetailKeys       = 24
	maxDetailStringLen  = 256

	// trimDetailCategories and trimDetailKeys are the tighter caps applied
	// by the oversize recovery pass.
	trimDetailCategories = 8
	trimDetailKeys       = 8
)

// Identity is the stable identity of an actor. ID is the durable key; Name
// is what operators see and type.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FlagEntry accumulates suspicion for one violation category.
type FlagEntry struct {
	Count         uint32    `json:"count"`
	LastDetection time.Time `json:"last_detection"`
}

// Restriction is an active or expired ban/mute.
type Restriction struct {
	Reason    string    `json:"reason"`
	IssuedBy  string    `json:"issued_by"`
	Automatic bool      `json:"automatic"`
	Category  string    `json:"category,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`

	// ExpiresAt is nil for a permanent restriction.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Active reports whether the restriction is in force at now.
func (r *Restriction) Active(now time.Time) bool {
	if r == nil {
		return false
	}
	return r.ExpiresAt == nil || now.Before(*r.ExpiresAt)
}

// EscalationState tracks the highest ladder tier fired for one category.
// LastThreshold is the fired tier's flag threshold; zero means no action has
// been taken yet.
type EscalationState struct {
	LastThreshold uint32    `json:"last_threshold"`
	LastActionAt  time.Time `json:"last_action_at"`
}

// ActorRecord is the per-actor ledger entry. Persisted fields only; the
// mutex and dirty marker never serialize.
type ActorRecord struct {
	SchemaVersion int      `json:"schema_version"`
	Identity      Identity `json:"identity"`

	Flags      map[string]*FlagEntry `json:"flags"`
	TotalFlags uint64                `json:"total_flags"`

	Ban  *Restriction `json:"ban,omitempty"`
	Mute *Restriction `json:"mute,omitempty"`

	Escalation map[string]*EscalationState `json:"escalation"`

	// LastViolation keeps the most recent detection details per category
	// for operator inspection, capped by the detail limits above.
	LastViolation map[string]map[string]any `json:"last_violation"`

	mu    sync.Mutex
	dirty bool
}

// NewRecord returns a default-initialized record for the identity.
func NewRecord(identity Identity) *ActorRecord {
	return &ActorRecord{
		SchemaVersion: RecordSchemaVersion,
		Identity:      identity,
		Flags:         make(map[string]*FlagEntry),
		Escalation:    make(map[string]*EscalationState),
		LastViolation: make(map[string]map[string]any),
	}
}

// MarkDirty flags the record as having unsaved changes.
func (r *ActorRecord) MarkDirty() { r.dirty = true }

// Dirty reports whether the record has unsaved changes.
func (r *ActorRecord) Dirty() bool { return r.dirty }

func (r *ActorRecord) clearDirty() { r.dirty = false }

// AddFlags accrues n flags for the category and returns the updated entry.
func (r *ActorRecord) AddFlags(category string, n uint32, now time.Time) *FlagEntry {
	entry := r.Flags[category]
	if entry == nil {
		entry = &FlagEntry{}
		r.Flags[category] = entry
	}
	entry.Count += n
	entry.LastDetection = now
	r.TotalFlags += uint64(n)
	r.MarkDirty()
	return entry
}

// FlagCount returns the current flag count for the category.
func (r *ActorRecord) FlagCount(category string) uint32 {
	if entry := r.Flags[category]; entry != nil {
		return entry.Count
	}
	return 0
}

// EscalationFor returns the escalation state for the category, creating it
// if absent.
func (r *ActorRecord) EscalationFor(category string) *EscalationState {
	state := r.Escalation[category]
	if state == nil {
		state = &EscalationState{}
		r.Escalation[category] = state
	}
	return state
}

// ResetCategory zeroes one category's flags (subtracting from the aggregate)
// and resets its escalation state to initial, so the actor re-escalates from
// tier one on renewed misbehavior.
func (r *ActorRecord) ResetCategory(category string) {
	if entry := r.Flags[category]; entry != nil {
		r.TotalFlags -= uint64(entry.Count)
		delete(r.Flags, category)
	}
	delete(r.Escalation, category)
	r.MarkDirty()
}

// ResetAll returns flags, escalation state, and captured details to
// defaults. Restrictions are untouched; a purge forgives suspicion, not an
// issued ban.
func (r *ActorRecord) ResetAll() {
	r.Flags = make(map[string]*FlagEntry)
	r.TotalFlags = 0
	r.Escalation = make(map[string]*EscalationState)
	r.LastViolation = make(map[string]map[string]any)
	r.MarkDirty()
}

// SetBan installs a ban, replacing any existing one.
func (r *ActorRecord) SetBan(ban *Restriction) {
	r.Ban = ban
	r.MarkDirty()
}

// SetMute installs a mute, replacing any existing one.
func (r *ActorRecord) SetMute(mute *Restriction) {
	r.Mute = mute
	r.MarkDirty()
}

// ActiveBan returns the ban if it is in force at now.
func (r *ActorRecord) ActiveBan(now time.Time) *Restriction {
	if r.Ban.Active(now) {
		return r.Ban
	}
	return nil
}

// ActiveMute returns the mute if it is in force at now.
func (r *ActorRecord) ActiveMute(now time.Time) *Restriction {
	if r.Mute.Active(now) {
		return r.Mute
	}
	return nil
}

// CaptureViolation stores a bounded copy of the detection details for
// operator inspection. Values are limited to primitives, strings are
// truncated, key count is capped, and the category count is capped with
// oldest-detection eviction.
func (r *ActorRecord) CaptureViolation(category string, details map[string]any) {
	if len(details) == 0 {
		return
	}

	if _, exists := r.LastViolation[category]; !exists && len(r.LastViolation) >= maxDetailCategories {
		r.evictOldestDetail()
	}

	r.LastViolation[category] = boundDetails(details, maxDetailKeys)
	r.MarkDirty()
}

// evictOldestDetail drops the captured details for the category with the
// oldest last detection.
func (r *ActorRecord) evictOldestDetail() {
	var oldest string
	var oldestAt time.Time
	first := true
	for category := range r.LastViolation {
		at := time.Time{}
		if entry := r.Flags[category]; entry != nil {
			at = entry.LastDetection
		}
		if first || at.Before(oldestAt) {
			oldest, oldestAt, first = category, at, false
		}
	}
	if oldest != "" {
		delete(r.LastViolation, oldest)
	}
}

// boundDetails copies details keeping at most limit keys (smallest keys
// first, for determinism), primitive values only, strings truncated.
func boundDetails(details map[string]any, limit int) map[string]any {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		switch v := details[k].(type) {
		case string:
			if len(v) > maxDetailStringLen {
				v = v[:maxDetailStringLen]
			}
			out[k] = v
		case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			out[k] = v
		}
	}
	return out
}

// trimForSize is the oversize recovery pass: tighten the detail caps so the
// record has a chance to fit under the serialized size limit.
func (r *ActorRecord) trimForSize() {
	for len(r.LastViolation) > trimDetailCategories {
		r.evictOldestDetail()
	}
	for category, details := range r.LastViolation {
		if len(details) > trimDetailKeys {
			r.LastViolation[category] = boundDetails(details, trimDetailKeys)
		}
	}
	r.MarkDirty()
}

// resetToDefaults replaces all persisted state with defaults, keeping only
// the identity. Last resort of the oversize recovery pass.
func (r *ActorRecord) resetToDefaults() {
	identity := r.Identity
	r.Flags = make(map[string]*FlagEntry)
	r.TotalFlags = 0
	r.Ban = nil
	r.Mute = nil
	r.Escalation = make(map[string]*EscalationState)
	r.LastViolation = make(map[string]map[string]any)
	r.SchemaVersion = RecordSchemaVersion
	r.Identity = identity
	r.MarkDirty()
}
