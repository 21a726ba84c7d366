// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package automod

import (
	"time"

	"github.com/wardenmod/warden/internal/ledger"
	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/metrics"
)

// ApplyDecay zeroes every category whose last activity (detection or
// escalation action, whichever is later) is older than window, resetting its
// escalation state with it. Returns the number of categories decayed. The
// caller must hold the record's lock; both the lazy pre-dispatch check and
// the background sweep go through here.
func ApplyDecay(rec *ledger.ActorRecord, window time.Duration, now time.Time) int {
	if window <= 0 {
		return 0
	}

	var expired []string
	for category, entry := range rec.Flags {
		last := entry.LastDetection
		if state := rec.Escalation[category]; state != nil && state.LastActionAt.After(last) {
			last = state.LastActionAt
		}
		if now.Sub(last) > window {
			expired = append(expired, category)
		}
	}

	for _, category := range expired {
		count := rec.FlagCount(category)
		rec.ResetCategory(category)
		metrics.FlagsDecayed.WithLabelValues(category).Inc()
		logging.Debug().
			Str("actor_name", rec.Identity.Name).
			Str("category", category).
			Uint32("flags", count).
			Msg("flags decayed by inactivity")
	}
	return len(expired)
}
