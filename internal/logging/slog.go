// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// Slog returns an *slog.Logger that forwards records to the global zerolog
// logger. Used for libraries that speak slog, such as the sutureslog
// supervision event hook.
func Slog() *slog.Logger {
	return slog.New(&slogHandler{})
}

type slogHandler struct {
	attrs  []slog.Attr
	groups []string
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return zerolog.GlobalLevel() <= slogToZerologLevel(level)
}

func (h *slogHandler) Handle(_ context.Context, record slog.Record) error {
	l := Logger()
	ev := l.WithLevel(slogToZerologLevel(record.Level))
	for _, attr := range h.attrs {
		ev = appendAttr(ev, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		ev = appendAttr(ev, "", attr)
		return true
	})
	ev.Msg(record.Message)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &slogHandler{attrs: merged, groups: h.groups}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	return &slogHandler{attrs: h.attrs, groups: append(h.groups[:len(h.groups):len(h.groups)], name)}
}

func appendAttr(ev *zerolog.Event, prefix string, attr slog.Attr) *zerolog.Event {
	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	val := attr.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		for _, nested := range val.Group() {
			ev = appendAttr(ev, key, nested)
		}
		return ev
	}
	return ev.Interface(key, val.Any())
}

func slogToZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
