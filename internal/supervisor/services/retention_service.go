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

// EntryExpirer deletes moderation-log entries older than a cutoff.
// Satisfied by *modlog.BadgerStore.
type EntryExpirer interface {
	DeleteOlderThan(cutoff time.Time) (int, error)
}

// RetentionService enforces the moderation log retention window.
type RetentionService struct {
	store    EntryExpirer
	keep     time.Duration
	interval time.Duration
	name     string
}

// NewRetentionService creates the modlog retention loop. keep is how far
// back entries survive.
func NewRetentionService(store EntryExpirer, keep, interval time.Duration) *RetentionService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionService{store: store, keep: keep, interval: interval, name: "modlog-retention"}
}

// Serve implements suture.Service.
func (s *RetentionService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := s.store.DeleteOlderThan(now.Add(-s.keep)); err != nil {
				logging.Error().Err(err).Msg("modlog retention pass failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *RetentionService) String() string {
	return s.name
}
