// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package metrics provides Prometheus instrumentation for the violation
// pipeline. Collectors are registered on the default registry; exposition is
// the host's concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch pipeline

	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_dispatches_total",
			Help: "Total violation dispatches by category and outcome",
		},
		[]string{"category", "outcome"}, // "processed", "disabled", "no_profile", "no_actor", "untracked"
	)

	FlagsAccrued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_flags_accrued_total",
			Help: "Total suspicion flags accrued by category",
		},
		[]string{"category"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warden_dispatch_duration_seconds",
			Help:    "Duration of a full dispatch including escalation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_notifications_dropped_total",
			Help: "Operator notifications dropped by reason",
		},
		[]string{"reason"}, // "rate_limited", "breaker_open", "send_error"
	)

	// Escalation engine

	EscalationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_escalation_actions_total",
			Help: "Automated escalation actions executed by type and category",
		},
		[]string{"action", "category"},
	)

	ActionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_action_failures_total",
			Help: "Automated actions that failed at the enforcement boundary",
		},
		[]string{"action"},
	)

	FlagsDecayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_flags_decayed_total",
			Help: "Flags zeroed by inactivity decay, by category",
		},
		[]string{"category"},
	)

	// Persistence

	RecordLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_record_loads_total",
			Help: "Durable record load attempts by result",
		},
		[]string{"result"}, // "hit", "absent", "parse_error", "identity_mismatch", "read_error"
	)

	RecordSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_record_saves_total",
			Help: "Durable record saves by result",
		},
		[]string{"result"}, // "ok", "trimmed", "reset", "error"
	)

	// Offline purge queue

	PurgeConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_purge_consumed_total",
			Help: "Offline purge requests applied on actor connect",
		},
	)

	PurgeDroppedStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_purge_dropped_stale_total",
			Help: "Offline purge requests dropped by age-based maintenance",
		},
	)
)
