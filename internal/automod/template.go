// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package automod

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// placeholderPattern matches {name} substitution markers in rule templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// RenderTemplate substitutes {placeholder} markers from the context map.
// Unresolved placeholders stay verbatim so a typo in a rule template is
// visible in the output instead of silently vanishing. Floats render with
// two decimals.
func RenderTemplate(tmpl string, ctx map[string]any) string {
	if tmpl == "" || len(ctx) == 0 {
		return tmpl
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		v, ok := ctx[m[1:len(m)-1]]
		if !ok {
			return m
		}
		return formatValue(v)
	})
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 2, 32)
	default:
		return fmt.Sprint(x)
	}
}

// FormatDuration renders a restriction duration for templates: "45s", "30m",
// "2h", or "permanent".
func FormatDuration(d time.Duration, permanent bool) string {
	if permanent {
		return "permanent"
	}
	d = d.Round(time.Second)
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
