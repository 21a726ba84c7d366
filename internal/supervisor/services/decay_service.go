// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package services

import (
	"context"
	"time"
)

// Sweeper runs one eager decay pass over all tracked actors. Satisfied by
// *automod.Sweeper.
type Sweeper interface {
	Sweep(now time.Time) int
}

// DecayService drives the background decay sweep. Actors who stopped
// triggering detections still have their stale flags zeroed on schedule.
type DecayService struct {
	sweeper  Sweeper
	interval time.Duration
	name     string
}

// NewDecayService creates the periodic decay sweep.
func NewDecayService(sweeper Sweeper, interval time.Duration) *DecayService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &DecayService{sweeper: sweeper, interval: interval, name: "decay-sweep"}
}

// Serve implements suture.Service.
func (s *DecayService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.sweeper.Sweep(now)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *DecayService) String() string {
	return s.name
}
