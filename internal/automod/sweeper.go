// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package automod

import (
	"time"

	"github.com/wardenmod/warden/internal/config"
	"github.com/wardenmod/warden/internal/ledger"
	"github.com/wardenmod/warden/internal/logging"
)

// Sweeper runs the eager decay pass over every tracked actor. The lazy
// pre-dispatch decay covers actors who keep triggering detections; the sweep
// covers the ones who went quiet.
type Sweeper struct {
	cfg   *config.Provider
	store *ledger.Store
}

// NewSweeper creates a decay sweeper over the actor store.
func NewSweeper(cfg *config.Provider, store *ledger.Store) *Sweeper {
	return &Sweeper{cfg: cfg, store: store}
}

// Sweep decays stale categories across all tracked actors and returns the
// number of categories zeroed.
func (s *Sweeper) Sweep(now time.Time) int {
	window := s.cfg.Current().Engine.DecayWindow
	total := 0
	for _, id := range s.store.ActorIDs() {
		s.store.WithActor(id, func(rec *ledger.ActorRecord) {
			total += ApplyDecay(rec, window, now)
		})
	}
	if total > 0 {
		logging.Info().Int("categories", total).Msg("decay sweep complete")
	}
	return total
}
