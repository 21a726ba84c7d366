// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package ledger

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPersistRoundTrip(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 30000)
	now := time.Now().UTC().Truncate(time.Second)

	rec := NewRecord(Identity{ID: "a1", Name: "Alice"})
	rec.AddFlags("movement_speed", 7, now)
	rec.EscalationFor("movement_speed").LastThreshold = 5
	expires := now.Add(time.Hour)
	rec.SetMute(&Restriction{Reason: "spam", Automatic: true, IssuedAt: now, ExpiresAt: &expires})
	rec.CaptureViolation("movement_speed", map[string]any{"speed": 14.2})

	require.NoError(t, p.save(rec))
	assert.False(t, rec.Dirty(), "save clears the dirty marker")

	loaded, err := p.load(Identity{ID: "a1", Name: "Alice"})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint32(7), loaded.FlagCount("movement_speed"))
	assert.Equal(t, uint64(7), loaded.TotalFlags)
	assert.Equal(t, uint32(5), loaded.EscalationFor("movement_speed").LastThreshold)
	require.NotNil(t, loaded.Mute)
	assert.True(t, loaded.Mute.Active(now))
	assert.Equal(t, 14.2, loaded.LastViolation["movement_speed"]["speed"])
}

func TestSaveSkipsCleanRecord(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 30000)

	rec := NewRecord(Identity{ID: "a1", Name: "Alice"})
	require.NoError(t, p.save(rec))

	loaded, err := p.load(Identity{ID: "a1", Name: "Alice"})
	require.NoError(t, err)
	assert.Nil(t, loaded, "clean record is never written")
}

func TestLoadAbsent(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 30000)

	rec, err := p.load(Identity{ID: "ghost", Name: "Ghost"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLoadRefreshesName(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 30000)

	rec := NewRecord(Identity{ID: "a1", Name: "Alice"})
	rec.AddFlags("chat_spam", 1, time.Now())
	require.NoError(t, p.save(rec))

	loaded, err := p.load(Identity{ID: "a1", Name: "AliceRenamed"})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "AliceRenamed", loaded.Identity.Name, "id is the key, name follows the session")
}

func TestLoadUnparseableFallsBack(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 30000)

	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey("a1"), []byte("{not json"))
	})
	require.NoError(t, err)

	rec, err := p.load(Identity{ID: "a1", Name: "Alice"})
	assert.Error(t, err)
	assert.Nil(t, rec, "caller default-initializes on parse failure")
}

func TestLoadIdentityMismatchFallsBack(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 30000)

	other := NewRecord(Identity{ID: "b2", Name: "Mallory"})
	data, err := json.Marshal(other)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey("a1"), data)
	}))

	rec, err := p.load(Identity{ID: "a1", Name: "Alice"})
	assert.ErrorIs(t, err, ErrIdentityMismatch)
	assert.Nil(t, rec)
}

func TestSaveTrimsOversizeRecord(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 8192)

	rec := NewRecord(Identity{ID: "a1", Name: "Alice"})
	now := time.Now()
	for i := 0; i < maxDetailCategories; i++ {
		category := fmt.Sprintf("cat_%02d", i)
		details := make(map[string]any, maxDetailKeys)
		for k := 0; k < maxDetailKeys; k++ {
			details[fmt.Sprintf("key_%02d", k)] = strings.Repeat("x", 64)
		}
		rec.AddFlags(category, 3, now)
		rec.CaptureViolation(category, details)
	}

	require.NoError(t, p.save(rec))

	loaded, err := p.load(Identity{ID: "a1", Name: "Alice"})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.LessOrEqual(t, len(loaded.LastViolation), trimDetailCategories)
	assert.Equal(t, uint64(3*maxDetailCategories), loaded.TotalFlags,
		"trim sacrifices inspection details, not flags")
}

func TestSaveResetsUntrimmableRecord(t *testing.T) {
	db := newTestDB(t)
	// A cap so small that even a trimmed record cannot fit.
	p := newPersister(db, 128)

	rec := NewRecord(Identity{ID: "a1", Name: "Alice"})
	now := time.Now()
	for i := 0; i < maxDetailCategories; i++ {
		rec.AddFlags(fmt.Sprintf("category_number_%02d", i), 3, now)
	}

	require.NoError(t, p.save(rec))

	loaded, err := p.load(Identity{ID: "a1", Name: "Alice"})
	require.NoError(t, err)
	require.NotNil(t, loaded, "reset record still persists")
	assert.Zero(t, loaded.TotalFlags)
	assert.Empty(t, loaded.Flags)
	assert.Equal(t, "a1", loaded.Identity.ID)
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	p := newPersister(db, 30000)

	rec := NewRecord(Identity{ID: "a1", Name: "Alice"})
	rec.AddFlags("chat_spam", 1, time.Now())
	require.NoError(t, p.save(rec))

	require.NoError(t, p.delete("a1"))
	require.NoError(t, p.delete("a1"), "delete is idempotent")

	loaded, err := p.load(Identity{ID: "a1", Name: "Alice"})
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
