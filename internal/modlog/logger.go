// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package modlog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wardenmod/warden/internal/logging"
)

// Appender is the durable backend behind the async logger.
type Appender interface {
	Append(entry Entry) error
}

// Logger is the asynchronous moderation-log writer. Record never blocks the
// caller; entries queue through a bounded buffer drained by a single writer
// goroutine. When the buffer is full entries are dropped with a warning --
// the dispatch path matters more than a complete log.
type Logger struct {
	store Appender
	ch    chan Entry
	done  chan struct{}
	once  sync.Once
}

// NewLogger starts the writer goroutine over the given backend.
func NewLogger(store Appender, bufferSize int) *Logger {
	if bufferSize < 1 {
		bufferSize = 1
	}
	l := &Logger{
		store: store,
		ch:    make(chan Entry, bufferSize),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Logger) run() {
	defer close(l.done)
	for entry := range l.ch {
		if err := l.store.Append(entry); err != nil {
			logging.Error().Err(err).Str("actor_name", entry.ActorName).Msg("modlog append failed")
		}
	}
}

// Record queues an entry for durable append. Fills in id and timestamp so
// callers only provide event fields. Drops on a full buffer.
func (l *Logger) Record(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	select {
	case l.ch <- entry:
	default:
		logging.Warn().
			Str("actor_name", entry.ActorName).
			Str("action_type", entry.ActionType).
			Msg("modlog buffer full, entry dropped")
	}
}

// Close stops accepting entries and drains the buffer to the backend.
func (l *Logger) Close() {
	l.once.Do(func() {
		close(l.ch)
		<-l.done
	})
}
