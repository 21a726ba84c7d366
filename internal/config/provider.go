// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package config

import (
	"sync/atomic"

	"github.com/wardenmod/warden/internal/logging"
)

// Provider publishes the active configuration to the engine. Readers take a
// consistent snapshot with Current(); reloads validate first and swap the
// whole object atomically, so an in-flight dispatch never observes a
// half-updated rule set.
type Provider struct {
	ptr atomic.Pointer[Config]
}

// NewProvider creates a provider serving cfg. The configuration must already
// be normalized and validated (Load guarantees this).
func NewProvider(cfg *Config) *Provider {
	p := &Provider{}
	p.ptr.Store(cfg)
	return p
}

// Current returns the active configuration snapshot. The returned object must
// be treated as read-only.
func (p *Provider) Current() *Config {
	return p.ptr.Load()
}

// Reload validates next and, on success, makes it the active configuration.
// On failure the previous configuration stays active and the rejection
// reasons are returned.
func (p *Provider) Reload(next *Config) (bool, []ValidationError) {
	next.Normalize()
	if errs := next.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logging.Warn().Str("field", e.Field).Str("reason", e.Message).Msg("config reload rejected")
		}
		return false, errs
	}

	p.ptr.Store(next)
	logging.Info().
		Int("profiles", len(next.Profiles)).
		Int("ladders", len(next.Ladders)).
		Msg("configuration reloaded")
	return true, nil
}
