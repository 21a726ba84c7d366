// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package automod

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenmod/warden/internal/config"
	"github.com/wardenmod/warden/internal/ledger"
	"github.com/wardenmod/warden/internal/modlog"
)

type fakeTarget struct {
	id, name  string
	connected bool
}

func (t *fakeTarget) ID() string       { return t.id }
func (t *fakeTarget) Name() string     { return t.name }
func (t *fakeTarget) Connected() bool  { return t.connected }
func (t *fakeTarget) Location() string { return "world:100,64,-20" }

type enforcerCall struct {
	method  string
	message string
	itemID  string
}

type fakeEnforcer struct {
	calls   []enforcerCall
	failAll error
}

func (f *fakeEnforcer) Warn(_ Target, message string) error {
	f.calls = append(f.calls, enforcerCall{method: "warn", message: message})
	return f.failAll
}

func (f *fakeEnforcer) Kick(_ Target, message string) error {
	f.calls = append(f.calls, enforcerCall{method: "kick", message: message})
	return f.failAll
}

func (f *fakeEnforcer) Teleport(_ Target) (Coordinates, error) {
	f.calls = append(f.calls, enforcerCall{method: "teleport"})
	return Coordinates{X: 0, Y: 64, Z: 0}, f.failAll
}

func (f *fakeEnforcer) RemoveItem(_ Target, itemID string, quantity int) (int, error) {
	f.calls = append(f.calls, enforcerCall{method: "removeItem", itemID: itemID})
	if f.failAll != nil {
		return 0, f.failAll
	}
	return quantity, nil
}

func (f *fakeEnforcer) methods() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.method
	}
	return out
}

type captureSink struct {
	entries []modlog.Entry
}

func (c *captureSink) Record(entry modlog.Entry) { c.entries = append(c.entries, entry) }

type captureNotifier struct {
	messages []string
}

func (c *captureNotifier) Notify(message string) { c.messages = append(c.messages, message) }

type harness struct {
	engine   *Engine
	enforcer *fakeEnforcer
	sink     *captureSink
	notifier *captureNotifier
	rec      *ledger.ActorRecord
	target   *fakeTarget
}

func newHarness(t *testing.T, ladder *config.Ladder) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Ladders["movement_speed"] = ladder

	h := &harness{
		enforcer: &fakeEnforcer{},
		sink:     &captureSink{},
		notifier: &captureNotifier{},
		rec:      ledger.NewRecord(ledger.Identity{ID: "a1", Name: "Alice"}),
		target:   &fakeTarget{id: "a1", name: "Alice", connected: true},
	}
	h.engine = NewEngine(config.NewProvider(cfg), h.enforcer, h.sink, h.notifier)
	return h
}

// accrue adds n flags and evaluates, the way a dispatch does.
func (h *harness) accrue(n uint32, now time.Time) {
	h.rec.AddFlags("movement_speed", n, now)
	h.engine.Evaluate(h.rec, h.target, "movement_speed", now)
}

func warnKickLadder() *config.Ladder {
	return &config.Ladder{Tiers: []config.Tier{
		{FlagThreshold: 5, Action: config.ActionWarn, Message: "Slow down, {actorName} ({flagCount} flags)"},
		{FlagThreshold: 10, Action: config.ActionKick, Message: "Kicked for {category}", ResetFlagsAfterAction: true},
	}}
}

func TestLadderEscalationScenario(t *testing.T) {
	h := newHarness(t, warnKickLadder())
	now := time.Now()

	// Below the first threshold: nothing fires.
	h.accrue(4, now)
	assert.Empty(t, h.enforcer.calls)

	// Crossing 5 fires the warn exactly once.
	h.accrue(1, now)
	require.Equal(t, []string{"warn"}, h.enforcer.methods())
	assert.Equal(t, "Slow down, Alice (5 flags)", h.enforcer.calls[0].message)

	// Re-dispatch between tiers never re-fires tier one.
	h.accrue(1, now)
	h.accrue(1, now)
	assert.Equal(t, []string{"warn"}, h.enforcer.methods())

	// Crossing 10 fires the kick and resets the category.
	h.accrue(3, now)
	assert.Equal(t, []string{"warn", "kick"}, h.enforcer.methods())
	assert.Zero(t, h.rec.FlagCount("movement_speed"))
	assert.Zero(t, h.rec.TotalFlags)

	// After the reset the ladder restarts from tier one.
	h.accrue(5, now)
	assert.Equal(t, []string{"warn", "kick", "warn"}, h.enforcer.methods())

	// Each executed action lands in the moderation log.
	require.Len(t, h.sink.entries, 3)
	assert.Equal(t, "kick", h.sink.entries[1].ActionType)
	assert.Equal(t, "Kicked for movement_speed", h.sink.entries[1].Reason)
	assert.Equal(t, "world:100,64,-20", h.sink.entries[1].Location)
}

func TestSkippedTiersOnlyHighestFires(t *testing.T) {
	h := newHarness(t, warnKickLadder())

	// A burst that jumps straight past both thresholds fires only the
	// highest crossed tier.
	h.accrue(12, time.Now())
	assert.Equal(t, []string{"kick"}, h.enforcer.methods())
}

func TestNoLadderNoAction(t *testing.T) {
	h := newHarness(t, warnKickLadder())
	now := time.Now()

	h.rec.AddFlags("block_reach", 50, now)
	h.engine.Evaluate(h.rec, h.target, "block_reach", now)
	assert.Empty(t, h.enforcer.calls)
}

func TestTimedRestrictMalformedDurationFallsBack(t *testing.T) {
	h := newHarness(t, &config.Ladder{Tiers: []config.Tier{
		{FlagThreshold: 3, Action: config.ActionTimedRestrict, Duration: "abc", Message: "Banned for {duration}"},
	}})
	now := time.Now()

	h.accrue(3, now)

	ban := h.rec.ActiveBan(now)
	require.NotNil(t, ban)
	require.NotNil(t, ban.ExpiresAt, "malformed duration falls back, never becomes permanent")
	fallback := config.Default().Engine.DefaultRestrictDuration
	assert.WithinDuration(t, now.Add(fallback), *ban.ExpiresAt, time.Second)
	assert.Equal(t, "Banned for 30m", ban.Reason)
	assert.True(t, ban.Automatic)

	// The restricted actor is also disconnected.
	assert.Equal(t, []string{"kick"}, h.enforcer.methods())
}

func TestPermanentRestrict(t *testing.T) {
	h := newHarness(t, &config.Ladder{Tiers: []config.Tier{
		{FlagThreshold: 2, Action: config.ActionPermanentRestrict, Message: "Banned: {category}"},
	}})
	now := time.Now()

	h.accrue(2, now)

	ban := h.rec.ActiveBan(now)
	require.NotNil(t, ban)
	assert.Nil(t, ban.ExpiresAt)
}

func TestMuteSetsRestrictionWithoutKick(t *testing.T) {
	h := newHarness(t, &config.Ladder{Tiers: []config.Tier{
		{FlagThreshold: 2, Action: config.ActionMute, Duration: "10m", Message: "Muted for {duration}"},
	}})
	now := time.Now()

	h.accrue(2, now)

	mute := h.rec.ActiveMute(now)
	require.NotNil(t, mute)
	assert.Equal(t, "Muted for 10m", mute.Reason)
	assert.Empty(t, h.enforcer.calls, "a mute is record state, not an in-world call")
}

func TestOfflineTargetStillBanned(t *testing.T) {
	h := newHarness(t, &config.Ladder{Tiers: []config.Tier{
		{FlagThreshold: 2, Action: config.ActionTimedRestrict, Duration: "1h"},
	}})
	h.target.connected = false
	now := time.Now()

	h.accrue(2, now)

	require.NotNil(t, h.rec.ActiveBan(now), "ban applies even when the actor dropped")
	assert.Empty(t, h.enforcer.calls, "no kick for a disconnected actor")
}

func TestTeleportAddsCoordinatesToMessage(t *testing.T) {
	h := newHarness(t, &config.Ladder{Tiers: []config.Tier{
		{FlagThreshold: 1, Action: config.ActionTeleportToSafeLocation, Message: "Returned to {coordinates}"},
	}})

	h.accrue(1, time.Now())

	require.Equal(t, []string{"teleport", "warn"}, h.enforcer.methods())
	assert.Equal(t, "Returned to 0.0, 64.0, 0.0", h.enforcer.calls[1].message)
}

func TestRemoveItem(t *testing.T) {
	h := newHarness(t, &config.Ladder{Tiers: []config.Tier{
		{FlagThreshold: 1, Action: config.ActionRemoveItem, ItemID: "elytra", ItemQuantity: 1, Message: "Removed {itemQuantity}x {itemId}"},
	}})

	h.accrue(1, time.Now())

	require.Equal(t, []string{"removeItem", "warn"}, h.enforcer.methods())
	assert.Equal(t, "elytra", h.enforcer.calls[0].itemID)
	assert.Equal(t, "Removed 1x elytra", h.enforcer.calls[1].message)
}

func TestCriticalFailureNotifiesOperators(t *testing.T) {
	h := newHarness(t, warnKickLadder())
	h.enforcer.failAll = errors.New("server rejected")
	now := time.Now()

	// Failed warn: logged and counted, but not operator-critical.
	h.accrue(5, now)
	assert.Empty(t, h.notifier.messages)
	assert.Empty(t, h.sink.entries, "failed actions do not claim a modlog entry")

	// Failed kick: operators must hear about it.
	h.accrue(5, now)
	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], "kick")
	assert.Contains(t, h.notifier.messages[0], "Alice")
}

func TestFailedTierStillMarksThreshold(t *testing.T) {
	h := newHarness(t, warnKickLadder())
	h.enforcer.failAll = errors.New("server rejected")
	now := time.Now()

	h.accrue(5, now)
	h.accrue(0, now)
	assert.Equal(t, []string{"warn"}, h.enforcer.methods(),
		"a failed tier is not retried on re-dispatch")
}

func TestEvaluateDecaysStaleFlags(t *testing.T) {
	h := newHarness(t, warnKickLadder())
	stale := time.Now().Add(-100 * time.Hour)

	// 7 stale flags would sit above tier one, but they decay before the
	// ladder walk, so nothing fires.
	h.rec.AddFlags("movement_speed", 7, stale)
	h.engine.Evaluate(h.rec, h.target, "movement_speed", time.Now())

	assert.Empty(t, h.enforcer.calls)
	assert.Zero(t, h.rec.FlagCount("movement_speed"))
}
