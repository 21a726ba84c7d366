// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package services

import (
	"context"
	"time"

	"github.com/wardenmod/warden/internal/logging"
)

// StaleDropper ages out unconsumed offline purge requests. Satisfied by
// *ledger.PurgeQueue.
type StaleDropper interface {
	PurgeStale(maxAge time.Duration) (int, error)
}

// PurgeAgeService bounds the offline purge queue by dropping requests whose
// actor never reconnected within the maximum age.
type PurgeAgeService struct {
	queue    StaleDropper
	maxAge   time.Duration
	interval time.Duration
	name     string
}

// NewPurgeAgeService creates the purge-queue aging loop.
func NewPurgeAgeService(queue StaleDropper, maxAge, interval time.Duration) *PurgeAgeService {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &PurgeAgeService{queue: queue, maxAge: maxAge, interval: interval, name: "purge-age"}
}

// Serve implements suture.Service.
func (s *PurgeAgeService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.queue.PurgeStale(s.maxAge); err != nil {
				logging.Error().Err(err).Msg("purge queue aging failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *PurgeAgeService) String() string {
	return s.name
}
