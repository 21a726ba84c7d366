// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package modlog is the durable moderation log: every detection-triggered
// log rule and every automated escalation action lands here so operators can
// reconstruct what the engine did to whom, and why. Writes go through an
// async buffered logger so record-keeping never blocks the dispatch path.
package modlog

import (
	"time"
)

// Entry is one moderation-log event.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// ActionType is the escalation action executed, or "detection" for a
	// profile log rule.
	ActionType string `json:"action_type"`

	ActorName string `json:"actor_name"`
	ActorID   string `json:"actor_id,omitempty"`
	Category  string `json:"category,omitempty"`

	// Reason is the rendered human-readable message.
	Reason string `json:"reason"`

	// Details carries the bounded detection payload, when available.
	Details map[string]any `json:"details,omitempty"`

	// Location is where the actor was when the event fired, when known.
	Location string `json:"location,omitempty"`
}

// Sink accepts moderation-log entries. The engine writes through this so
// tests can capture entries without a database.
type Sink interface {
	Record(entry Entry)
}

// Discard is a Sink that drops everything. Used when the modlog is disabled.
type Discard struct{}

func (Discard) Record(Entry) {}
