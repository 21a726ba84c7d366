// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package config

// ActionType identifies an automated escalation action.
type ActionType string

const (
	// ActionWarn sends a warning message to the actor.
	ActionWarn ActionType = "warn"

	// ActionKick disconnects the actor with a message.
	ActionKick ActionType = "kick"

	// ActionTimedRestrict bans the actor for a tier-configured duration.
	ActionTimedRestrict ActionType = "timedRestrict"

	// ActionPermanentRestrict bans the actor permanently.
	ActionPermanentRestrict ActionType = "permanentRestrict"

	// ActionMute mutes the actor for a tier-configured duration.
	ActionMute ActionType = "mute"

	// ActionTeleportToSafeLocation returns the actor to a safe position.
	ActionTeleportToSafeLocation ActionType = "teleportToSafeLocation"

	// ActionRemoveItem removes a tier-configured item from the actor.
	ActionRemoveItem ActionType = "removeItem"

	// ActionFlagOnly records the tier crossing without any effect.
	ActionFlagOnly ActionType = "flagOnly"
)

var validActionTypes = map[ActionType]bool{
	ActionWarn:                   true,
	ActionKick:                   true,
	ActionTimedRestrict:          true,
	ActionPermanentRestrict:      true,
	ActionMute:                   true,
	ActionTeleportToSafeLocation: true,
	ActionRemoveItem:             true,
	ActionFlagOnly:               true,
}

// Valid reports whether the action type is known.
func (a ActionType) Valid() bool {
	return validActionTypes[a]
}

// Critical reports whether a failure to execute this action indicates
// automation breakage operators must hear about.
func (a ActionType) Critical() bool {
	switch a {
	case ActionKick, ActionTimedRestrict, ActionPermanentRestrict, ActionMute:
		return true
	default:
		return false
	}
}

// ActionProfile declares the side effects a category's detection triggers.
// Read-only at runtime; hot-swapped as part of a whole-Config reload.
type ActionProfile struct {
	// Enabled is the runtime toggle for this category.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Flag, when present, accrues suspicion flags on dispatch.
	Flag *FlagRule `koanf:"flag" json:"flag,omitempty"`

	// Log, when present, emits a moderation-log entry on dispatch.
	Log *LogRule `koanf:"log" json:"log,omitempty"`

	// Notify, when present, messages operators on dispatch.
	Notify *NotifyRule `koanf:"notify" json:"notify,omitempty"`
}

// FlagRule declares flag accrual for a category.
type FlagRule struct {
	// Increment is the number of flags added per detection. Defaults to 1.
	Increment uint32 `koanf:"increment" json:"increment"`
}

// LogRule declares moderation logging for a category.
type LogRule struct {
	// Template is the detail message. {placeholders} are substituted from
	// the detection details payload.
	Template string `koanf:"template" json:"template"`

	// Level is the zerolog level for the mirrored structured log line.
	// Defaults to info.
	Level string `koanf:"level" json:"level"`
}

// NotifyRule declares operator notification for a category.
type NotifyRule struct {
	Template string `koanf:"template" json:"template"`
}

// Ladder is an ordered escalation rule set for one category.
type Ladder struct {
	Tiers []Tier `koanf:"tiers" json:"tiers"`
}

// Tier maps a flag-count threshold to an automated action.
type Tier struct {
	// FlagThreshold is the flag count at which this tier fires. Thresholds
	// must be strictly ascending within a ladder.
	FlagThreshold uint32 `koanf:"flag_threshold" json:"flag_threshold"`

	// Action is the automated action type.
	Action ActionType `koanf:"action" json:"action"`

	// Duration applies to timedRestrict and mute, in ladder duration syntax
	// ("300", "300s", "5m", "1h", "2d", "permanent"). Malformed values fall
	// back to the engine default at execution time.
	Duration string `koanf:"duration" json:"duration,omitempty"`

	// Message is the template shown to the actor and operators. Substituted
	// with the action context (actorName, actionType, category, flagCount,
	// flagThreshold, duration, itemId, itemQuantity, coordinates).
	Message string `koanf:"message" json:"message,omitempty"`

	// ItemID and ItemQuantity apply to removeItem.
	ItemID       string `koanf:"item_id" json:"item_id,omitempty"`
	ItemQuantity int    `koanf:"item_quantity" json:"item_quantity,omitempty"`

	// ResetFlagsAfterAction zeroes the category's flags and escalation state
	// after the action, so renewed misbehavior re-escalates from tier one.
	ResetFlagsAfterAction bool `koanf:"reset_flags_after_action" json:"reset_flags_after_action"`
}

// Normalize applies rule defaults in place. Called once at load, before
// validation, so the runtime never sees zero values with implied defaults.
func (c *Config) Normalize() {
	for _, profile := range c.Profiles {
		if profile == nil {
			continue
		}
		if profile.Flag != nil && profile.Flag.Increment == 0 {
			profile.Flag.Increment = 1
		}
		if profile.Log != nil && profile.Log.Level == "" {
			profile.Log.Level = "info"
		}
	}
	for _, ladder := range c.Ladders {
		if ladder == nil {
			continue
		}
		for i := range ladder.Tiers {
			tier := &ladder.Tiers[i]
			if tier.Action == ActionRemoveItem && tier.ItemQuantity == 0 {
				tier.ItemQuantity = 1
			}
		}
	}
}
