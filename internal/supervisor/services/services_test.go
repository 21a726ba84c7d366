// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestServiceInterfaces(t *testing.T) {
	t.Parallel()
	var _ suture.Service = (*FlushService)(nil)
	var _ suture.Service = (*DecayService)(nil)
	var _ suture.Service = (*PurgeAgeService)(nil)
	var _ suture.Service = (*RetentionService)(nil)
}

type mockFlusher struct {
	calls atomic.Int32
	err   error
}

func (m *mockFlusher) FlushAll() error {
	m.calls.Add(1)
	return m.err
}

func TestFlushServiceTicksAndFinalFlush(t *testing.T) {
	t.Parallel()

	flusher := &mockFlusher{}
	svc := NewFlushService(flusher, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	// At least one periodic tick plus the shutdown flush.
	if got := flusher.calls.Load(); got < 2 {
		t.Errorf("FlushAll called %d times, want >= 2", got)
	}
}

func TestFlushServiceSurvivesFlushError(t *testing.T) {
	t.Parallel()

	flusher := &mockFlusher{err: errors.New("disk full")}
	svc := NewFlushService(flusher, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Serve() = %v, want deadline exceeded", err)
	}
	if flusher.calls.Load() < 2 {
		t.Error("flush errors must not stop the loop")
	}
}

type mockSweeper struct {
	calls atomic.Int32
}

func (m *mockSweeper) Sweep(time.Time) int {
	m.calls.Add(1)
	return 0
}

func TestDecayServiceTicks(t *testing.T) {
	t.Parallel()

	sweeper := &mockSweeper{}
	svc := NewDecayService(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if sweeper.calls.Load() < 1 {
		t.Error("Sweep never called")
	}
}

type mockDropper struct {
	gotMaxAge atomic.Int64
	calls     atomic.Int32
}

func (m *mockDropper) PurgeStale(maxAge time.Duration) (int, error) {
	m.gotMaxAge.Store(int64(maxAge))
	m.calls.Add(1)
	return 0, nil
}

func TestPurgeAgeServicePassesMaxAge(t *testing.T) {
	t.Parallel()

	dropper := &mockDropper{}
	svc := NewPurgeAgeService(dropper, 48*time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if dropper.calls.Load() < 1 {
		t.Fatal("PurgeStale never called")
	}
	if got := time.Duration(dropper.gotMaxAge.Load()); got != 48*time.Hour {
		t.Errorf("maxAge = %v, want 48h", got)
	}
}

type mockExpirer struct {
	calls atomic.Int32
}

func (m *mockExpirer) DeleteOlderThan(time.Time) (int, error) {
	m.calls.Add(1)
	return 0, nil
}

func TestRetentionServiceTicks(t *testing.T) {
	t.Parallel()

	expirer := &mockExpirer{}
	svc := NewRetentionService(expirer, 24*time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if expirer.calls.Load() < 1 {
		t.Error("DeleteOlderThan never called")
	}
}

func TestServiceNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		svc  interface{ String() string }
		want string
	}{
		{NewFlushService(&mockFlusher{}, time.Second), "ledger-flush"},
		{NewDecayService(&mockSweeper{}, time.Second), "decay-sweep"},
		{NewPurgeAgeService(&mockDropper{}, time.Hour, time.Second), "purge-age"},
		{NewRetentionService(&mockExpirer{}, time.Hour, time.Second), "modlog-retention"},
	}
	for _, tt := range tests {
		if got := tt.svc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
