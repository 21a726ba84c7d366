// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package automod is the tiered escalation engine. After each flag accrual
// it walks the category's ladder and executes the highest newly-crossed
// tier, at most once per threshold: re-dispatches at the same flag count
// never re-fire an already-executed tier.
package automod

import (
	"fmt"
	"time"

	"github.com/wardenmod/warden/internal/config"
	"github.com/wardenmod/warden/internal/ledger"
	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/metrics"
	"github.com/wardenmod/warden/internal/modlog"
)

// Target is the game-server handle for the actor being escalated. A nil or
// disconnected target skips in-world actions; record-state actions (bans,
// mutes) still apply.
type Target interface {
	ID() string
	Name() string
	Connected() bool
	Location() string
}

// Coordinates is a position returned by a safe-location teleport.
type Coordinates struct {
	X, Y, Z float64
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.1f, %.1f, %.1f", c.X, c.Y, c.Z)
}

// Enforcer carries automated actions into the game server. Implementations
// return an error when the server rejects the action; the engine logs,
// counts, and for critical actions notifies operators, but never panics and
// never retries.
type Enforcer interface {
	Warn(target Target, message string) error
	Kick(target Target, message string) error
	Teleport(target Target) (Coordinates, error)
	RemoveItem(target Target, itemID string, quantity int) (int, error)
}

// Notifier delivers operator-facing messages. Rate limiting and delivery
// failure handling live behind this interface.
type Notifier interface {
	Notify(message string)
}

// Engine evaluates escalation ladders and executes tier actions.
type Engine struct {
	cfg      *config.Provider
	enforcer Enforcer
	sink     modlog.Sink
	notifier Notifier
}

// NewEngine wires the escalation engine. sink and notifier may be
// modlog.Discard / a no-op Notifier when those outputs are disabled.
func NewEngine(cfg *config.Provider, enforcer Enforcer, sink modlog.Sink, notifier Notifier) *Engine {
	return &Engine{cfg: cfg, enforcer: enforcer, sink: sink, notifier: notifier}
}

// Evaluate walks the category's ladder against the current flag count and
// executes the highest tier not yet fired. The caller holds the record's
// lock. Decay is applied first so a stale count never triggers a tier.
func (e *Engine) Evaluate(rec *ledger.ActorRecord, target Target, category string, now time.Time) {
	cfg := e.cfg.Current()
	ApplyDecay(rec, cfg.Engine.DecayWindow, now)

	ladder := cfg.Ladder(category)
	if ladder == nil {
		return
	}

	count := rec.FlagCount(category)
	state := rec.EscalationFor(category)

	// Tiers are validated strictly ascending, so the last match is the
	// highest crossed tier. Skipped intermediate tiers never fire.
	var fired *config.Tier
	for i := range ladder.Tiers {
		tier := &ladder.Tiers[i]
		if count >= tier.FlagThreshold && tier.FlagThreshold > state.LastThreshold {
			fired = tier
		}
	}
	if fired == nil {
		return
	}

	e.executeTier(rec, target, category, fired, count, now)

	state.LastThreshold = fired.FlagThreshold
	state.LastActionAt = now
	rec.MarkDirty()

	if fired.ResetFlagsAfterAction {
		rec.ResetCategory(category)
	}
}

// executeTier performs the tier's action and records it in the moderation
// log. Action failures are contained here.
func (e *Engine) executeTier(rec *ledger.ActorRecord, target Target, category string, tier *config.Tier, count uint32, now time.Time) {
	cfg := e.cfg.Current()

	actorName := rec.Identity.Name
	ctx := map[string]any{
		"actorName":     actorName,
		"actionType":    string(tier.Action),
		"category":      category,
		"flagCount":     count,
		"flagThreshold": tier.FlagThreshold,
	}

	duration, permanent := config.ParseDuration(tier.Duration, cfg.Engine.DefaultRestrictDuration)
	if tier.Action == config.ActionPermanentRestrict {
		permanent = true
	}
	switch tier.Action {
	case config.ActionTimedRestrict, config.ActionPermanentRestrict, config.ActionMute:
		ctx["duration"] = FormatDuration(duration, permanent)
	case config.ActionRemoveItem:
		ctx["itemId"] = tier.ItemID
		ctx["itemQuantity"] = tier.ItemQuantity
	}

	online := target != nil && target.Connected()
	var actionErr error

	switch tier.Action {
	case config.ActionFlagOnly:
		// Threshold crossing recorded, no effect.

	case config.ActionWarn:
		if online {
			actionErr = e.enforcer.Warn(target, renderMessage(tier, ctx))
		}

	case config.ActionKick:
		if online {
			actionErr = e.enforcer.Kick(target, renderMessage(tier, ctx))
		}

	case config.ActionTimedRestrict, config.ActionPermanentRestrict:
		restriction := &ledger.Restriction{
			Reason:    renderMessage(tier, ctx),
			IssuedBy:  "automod",
			Automatic: true,
			Category:  category,
			IssuedAt:  now,
		}
		if !permanent {
			expires := now.Add(duration)
			restriction.ExpiresAt = &expires
		}
		rec.SetBan(restriction)
		if online {
			actionErr = e.enforcer.Kick(target, restriction.Reason)
		}

	case config.ActionMute:
		restriction := &ledger.Restriction{
			Reason:    renderMessage(tier, ctx),
			IssuedBy:  "automod",
			Automatic: true,
			Category:  category,
			IssuedAt:  now,
		}
		if !permanent {
			expires := now.Add(duration)
			restriction.ExpiresAt = &expires
		}
		rec.SetMute(restriction)

	case config.ActionTeleportToSafeLocation:
		if online {
			coords, err := e.enforcer.Teleport(target)
			if err != nil {
				actionErr = err
				break
			}
			ctx["coordinates"] = coords.String()
			if msg := renderMessage(tier, ctx); msg != "" {
				// Best-effort: the teleport itself already succeeded.
				if err := e.enforcer.Warn(target, msg); err != nil {
					logging.Warn().Err(err).Str("actor_name", actorName).Msg("teleport notice undeliverable")
				}
			}
		}

	case config.ActionRemoveItem:
		if online {
			removed, err := e.enforcer.RemoveItem(target, tier.ItemID, tier.ItemQuantity)
			if err != nil {
				actionErr = err
				break
			}
			ctx["itemQuantity"] = removed
			if msg := renderMessage(tier, ctx); msg != "" {
				if err := e.enforcer.Warn(target, msg); err != nil {
					logging.Warn().Err(err).Str("actor_name", actorName).Msg("item removal notice undeliverable")
				}
			}
		}
	}

	if actionErr != nil {
		e.reportFailure(tier.Action, actorName, category, actionErr)
		return
	}

	metrics.EscalationActions.WithLabelValues(string(tier.Action), category).Inc()
	logging.Info().
		Str("actor_name", actorName).
		Str("actor_id", rec.Identity.ID).
		Str("category", category).
		Str("action", string(tier.Action)).
		Uint32("flag_count", count).
		Uint32("threshold", tier.FlagThreshold).
		Msg("escalation action executed")

	entry := modlog.Entry{
		ActionType: string(tier.Action),
		ActorName:  actorName,
		ActorID:    rec.Identity.ID,
		Category:   category,
		Reason:     renderMessage(tier, ctx),
		Details:    rec.LastViolation[category],
	}
	if target != nil {
		entry.Location = target.Location()
	}
	e.sink.Record(entry)
}

// reportFailure counts and logs a failed action. Critical actions (kicks,
// restricts, mutes) additionally notify operators: a ban that silently did
// not happen is an incident, not a log line.
func (e *Engine) reportFailure(action config.ActionType, actorName, category string, err error) {
	metrics.ActionFailures.WithLabelValues(string(action)).Inc()
	logging.Error().
		Err(err).
		Str("code", "automod_action_failed").
		Str("actor_name", actorName).
		Str("category", category).
		Str("action", string(action)).
		Msg("escalation action failed")

	if action.Critical() && e.notifier != nil {
		e.notifier.Notify(fmt.Sprintf(
			"AutoMod failed to %s %s for %s: %v", action, actorName, category, err))
	}
}

// renderMessage renders the tier message, falling back to a generic line so
// an actor is never kicked with an empty reason.
func renderMessage(tier *config.Tier, ctx map[string]any) string {
	if tier.Message != "" {
		return RenderTemplate(tier.Message, ctx)
	}
	switch tier.Action {
	case config.ActionFlagOnly, config.ActionTeleportToSafeLocation, config.ActionRemoveItem:
		return ""
	default:
		return RenderTemplate("Automated action: {actionType} ({category})", ctx)
	}
}
