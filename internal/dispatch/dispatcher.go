// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package dispatch is the entry point for detection events. A dispatch
// looks up the category's declarative action profile and runs its side
// effects: flag accrual, moderation logging, operator notification, and
// the escalation ladder walk. Each step is independent and best-effort; a
// failing notification never blocks an accrual.
package dispatch

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/wardenmod/warden/internal/automod"
	"github.com/wardenmod/warden/internal/config"
	"github.com/wardenmod/warden/internal/ledger"
	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/metrics"
	"github.com/wardenmod/warden/internal/modlog"
)

// Actor is the game-server handle dispatches arrive with. It satisfies
// automod.Target, so the escalation engine can act on it directly.
type Actor interface {
	ID() string
	Name() string
	Connected() bool
	Location() string
}

// Dispatcher routes detection events through category action profiles.
type Dispatcher struct {
	cfg      *config.Provider
	store    *ledger.Store
	engine   *automod.Engine
	sink     modlog.Sink
	notifier *Notifier
}

// NewDispatcher wires the dispatcher over its collaborators.
func NewDispatcher(cfg *config.Provider, store *ledger.Store, engine *automod.Engine, sink modlog.Sink, notifier *Notifier) *Dispatcher {
	return &Dispatcher{cfg: cfg, store: store, engine: engine, sink: sink, notifier: notifier}
}

// Dispatch processes one detection of category for actor, with the
// detection's details payload available to rule templates. Never returns an
// error: a detection system must not crash or stall because a side effect
// misbehaved.
func (d *Dispatcher) Dispatch(actor Actor, category string, details map[string]any) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	cfg := d.cfg.Current()
	if !cfg.Engine.Enabled {
		metrics.DispatchesTotal.WithLabelValues(category, "disabled").Inc()
		return
	}

	profile := cfg.Profile(category)
	if profile == nil || !profile.Enabled {
		metrics.DispatchesTotal.WithLabelValues(category, "no_profile").Inc()
		return
	}

	if actor == nil {
		// Actorless detections still produce their log line; accrual,
		// notification, and escalation need a live actor.
		if profile.Log != nil {
			ctx := make(map[string]any, len(details)+1)
			for k, v := range details {
				ctx[k] = v
			}
			ctx["category"] = category
			d.mirrorLog(profile.Log, automod.RenderTemplate(profile.Log.Template, ctx), "", "", category)
		}
		metrics.DispatchesTotal.WithLabelValues(category, "no_actor").Inc()
		return
	}

	tracked := d.store.WithActor(actor.ID(), func(rec *ledger.ActorRecord) {
		now := time.Now()

		// Stale suspicion decays before this detection counts against the
		// ladder.
		automod.ApplyDecay(rec, cfg.Engine.DecayWindow, now)

		if profile.Flag != nil {
			rec.AddFlags(category, profile.Flag.Increment, now)
			metrics.FlagsAccrued.WithLabelValues(category).Add(float64(profile.Flag.Increment))
		}

		// Details are kept for operator inspection regardless of whether the
		// profile accrues flags.
		rec.CaptureViolation(category, details)

		ctx := templateContext(actor, rec, category, details)

		if profile.Log != nil {
			d.logDetection(actor, rec, category, profile.Log, ctx)
		}
		if profile.Notify != nil && d.notifier != nil {
			d.notifier.Notify(automod.RenderTemplate(profile.Notify.Template, ctx))
		}

		d.engine.Evaluate(rec, actor, category, now)
	})
	if !tracked {
		// The actor disconnected between detection and dispatch.
		logging.Debug().
			Str("actor_id", actor.ID()).
			Str("category", category).
			Msg("dispatch for untracked actor dropped")
		metrics.DispatchesTotal.WithLabelValues(category, "untracked").Inc()
		return
	}

	metrics.DispatchesTotal.WithLabelValues(category, "processed").Inc()
}

// templateContext merges the detection details with the standard dispatch
// fields. Standard fields win on collision.
func templateContext(actor Actor, rec *ledger.ActorRecord, category string, details map[string]any) map[string]any {
	ctx := make(map[string]any, len(details)+3)
	for k, v := range details {
		ctx[k] = v
	}
	ctx["actorName"] = actor.Name()
	ctx["category"] = category
	ctx["flagCount"] = rec.FlagCount(category)
	return ctx
}

// logDetection writes the rendered log rule to the moderation log and
// mirrors it as a structured line at the rule's level.
func (d *Dispatcher) logDetection(actor Actor, rec *ledger.ActorRecord, category string, rule *config.LogRule, ctx map[string]any) {
	message := automod.RenderTemplate(rule.Template, ctx)

	d.sink.Record(modlog.Entry{
		ActionType: "detection",
		ActorName:  actor.Name(),
		ActorID:    actor.ID(),
		Category:   category,
		Reason:     message,
		Details:    rec.LastViolation[category],
		Location:   actor.Location(),
	})

	d.mirrorLog(rule, message, actor.Name(), actor.ID(), category)
}

func (d *Dispatcher) mirrorLog(rule *config.LogRule, message, actorName, actorID, category string) {
	level, err := zerolog.ParseLevel(rule.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	l := logging.Logger()
	ev := l.WithLevel(level).Str("category", category)
	if actorName != "" {
		ev = ev.Str("actor_name", actorName).Str("actor_id", actorID)
	}
	ev.Msg(message)
}
