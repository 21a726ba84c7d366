// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package config defines Warden's static configuration: engine tuning, the
// per-category action profiles, and the escalation ladders. Configuration is
// loaded in layers (defaults, YAML file, environment) via koanf, validated
// structurally before acceptance, and served to the rest of the engine
// through an atomically swappable Provider.
package config

import (
	"time"
)

// Config is the root configuration object. A *Config is immutable once
// published through a Provider; reloads swap the whole object.
type Config struct {
	Engine   EngineConfig   `koanf:"engine" json:"engine"`
	Database DatabaseConfig `koanf:"database" json:"database"`
	Logging  LoggingConfig  `koanf:"logging" json:"logging"`
	Modlog   ModlogConfig   `koanf:"modlog" json:"modlog"`

	// OfflineRestrictions lists actors restricted while offline. Matched by
	// case-folded name or stable id during actor initialization.
	OfflineRestrictions []OfflineRestriction `koanf:"offline_restrictions" json:"offline_restrictions"`

	// Profiles maps violation category to its declarative action profile.
	Profiles map[string]*ActionProfile `koanf:"profiles" json:"profiles"`

	// Ladders maps violation category to its escalation ladder.
	Ladders map[string]*Ladder `koanf:"ladders" json:"ladders"`
}

// EngineConfig tunes the ledger, escalation, and maintenance behavior.
type EngineConfig struct {
	// Enabled is the global kill-switch for dispatch processing.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// DecayWindow is the inactivity period after which a category's flags
	// are zeroed and its escalation state reset.
	DecayWindow time.Duration `koanf:"decay_window" json:"decay_window"`

	// DecaySweepInterval is how often the background decay sweep runs.
	DecaySweepInterval time.Duration `koanf:"decay_sweep_interval" json:"decay_sweep_interval"`

	// DefaultRestrictDuration is the fallback for malformed tier durations.
	DefaultRestrictDuration time.Duration `koanf:"default_restrict_duration" json:"default_restrict_duration"`

	// MaxRecordBytes caps the serialized size of a persisted actor record.
	MaxRecordBytes int `koanf:"max_record_bytes" json:"max_record_bytes" validate:"min=1024"`

	// FlushInterval is how often dirty records are opportunistically flushed.
	FlushInterval time.Duration `koanf:"flush_interval" json:"flush_interval"`

	// PurgeMaxAge bounds how long an unconsumed offline purge request lives.
	PurgeMaxAge time.Duration `koanf:"purge_max_age" json:"purge_max_age"`

	// PurgeSweepInterval is how often stale purge requests are dropped.
	PurgeSweepInterval time.Duration `koanf:"purge_sweep_interval" json:"purge_sweep_interval"`

	// NotifyEnabled is the global toggle for operator notifications.
	NotifyEnabled bool `koanf:"notify_enabled" json:"notify_enabled"`

	// NotifyRateEvery and NotifyBurst bound the operator notification rate
	// so detection storms do not flood operators.
	NotifyRateEvery time.Duration `koanf:"notify_rate_every" json:"notify_rate_every"`
	NotifyBurst     int           `koanf:"notify_burst" json:"notify_burst" validate:"min=1"`
}

// DatabaseConfig locates the badger database backing all durable state.
type DatabaseConfig struct {
	// Path is the badger directory. Empty selects an in-memory database,
	// which is only useful for tests.
	Path string `koanf:"path" json:"path"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" json:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller" json:"caller"`
}

// ModlogConfig configures the moderation log sink.
type ModlogConfig struct {
	Enabled         bool          `koanf:"enabled" json:"enabled"`
	BufferSize      int           `koanf:"buffer_size" json:"buffer_size" validate:"min=1"`
	RetentionDays   int           `koanf:"retention_days" json:"retention_days" validate:"min=1"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" json:"cleanup_interval"`
}

// OfflineRestriction bans an actor who may not be connected when the
// restriction is issued. Applied on next connect.
type OfflineRestriction struct {
	// Name matches case-insensitively against the connecting actor's name.
	Name string `koanf:"name" json:"name"`

	// ID matches against the actor's stable id. Either Name or ID must be set.
	ID string `koanf:"id" json:"id"`

	Reason   string `koanf:"reason" json:"reason"`
	IssuedBy string `koanf:"issued_by" json:"issued_by"`

	// Duration in ladder duration syntax ("5m", "1h", "permanent").
	// Empty means permanent.
	Duration string `koanf:"duration" json:"duration"`
}

// Default returns a Config with all engine defaults applied and empty rule
// tables. Rule tables come from the config file.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Enabled:                 true,
			DecayWindow:             72 * time.Hour,
			DecaySweepInterval:      5 * time.Minute,
			DefaultRestrictDuration: 30 * time.Minute,
			MaxRecordBytes:          30000,
			FlushInterval:           30 * time.Second,
			PurgeMaxAge:             30 * 24 * time.Hour,
			PurgeSweepInterval:      12 * time.Hour,
			NotifyEnabled:           true,
			NotifyRateEvery:         time.Second,
			NotifyBurst:             5,
		},
		Database: DatabaseConfig{
			Path: "/data/warden",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Modlog: ModlogConfig{
			Enabled:         true,
			BufferSize:      1024,
			RetentionDays:   90,
			CleanupInterval: 24 * time.Hour,
		},
		Profiles: map[string]*ActionProfile{},
		Ladders:  map[string]*Ladder{},
	}
}

// Profile returns the action profile for a category, or nil.
func (c *Config) Profile(category string) *ActionProfile {
	return c.Profiles[category]
}

// Ladder returns the escalation ladder for a category, or nil.
func (c *Config) Ladder(category string) *Ladder {
	return c.Ladders[category]
}
