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

// Flusher persists all dirty actor records. Satisfied by *ledger.Store.
type Flusher interface {
	FlushAll() error
}

// FlushService periodically flushes dirty records so a crash loses at most
// one interval of ledger changes. A final flush runs on shutdown.
type FlushService struct {
	store    Flusher
	interval time.Duration
	name     string
}

// NewFlushService creates the periodic flush loop.
func NewFlushService(store Flusher, interval time.Duration) *FlushService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &FlushService{store: store, interval: interval, name: "ledger-flush"}
}

// Serve implements suture.Service.
func (s *FlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.store.FlushAll(); err != nil {
				logging.Error().Err(err).Msg("final ledger flush failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.FlushAll(); err != nil {
				logging.Error().Err(err).Msg("periodic ledger flush failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *FlushService) String() string {
	return s.name
}
