// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package services wraps Warden's background loops as suture services.
// Each wrapper depends on a minimal interface rather than the concrete
// package, so services compose without import cycles and tests run against
// mocks.
package services
