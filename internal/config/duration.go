// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package config

import (
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a ladder duration string. The syntax is a superset of
// time.ParseDuration: bare numbers are seconds, a "d" suffix means days, and
// "permanent"/"perm" selects a never-expiring restriction. Malformed input
// degrades to the fallback rather than erroring, so a bad tier parameter can
// never abort an escalation action.
//
//	ParseDuration("300", d)       // 300s, false
//	ParseDuration("5m", d)        // 5m, false
//	ParseDuration("2d", d)        // 48h, false
//	ParseDuration("permanent", d) // 0, true
//	ParseDuration("abc", d)       // d, false
func ParseDuration(s string, fallback time.Duration) (time.Duration, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return fallback, false
	}
	if s == "permanent" || s == "perm" || s == "forever" {
		return 0, true
	}

	// Bare number: seconds.
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs <= 0 {
			return fallback, false
		}
		return time.Duration(secs * float64(time.Second)), false
	}

	// "2d" style day suffix, which time.ParseDuration rejects.
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.ParseFloat(days, 64); err == nil && n > 0 {
			return time.Duration(n * 24 * float64(time.Hour)), false
		}
	}

	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, false
	}

	return fallback, false
}
