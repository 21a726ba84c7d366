// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package dispatch

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/wardenmod/warden/internal/config"
	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/metrics"
)

// NotificationSink delivers a rendered message to operators. The concrete
// transport (in-game staff channel, webhook) is the host's concern.
type NotificationSink interface {
	Send(message string) error
}

// Notifier guards the operator notification channel: a token bucket caps the
// rate during detection storms, and a circuit breaker stops hammering a sink
// that keeps failing. Drops are counted, never retried.
type Notifier struct {
	cfg     *config.Provider
	sink    NotificationSink
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewNotifier wires the guarded notifier. A nil sink disables delivery.
func NewNotifier(cfg *config.Provider, sink NotificationSink) *Notifier {
	eng := cfg.Current().Engine
	return &Notifier{
		cfg:     cfg,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Every(eng.NotifyRateEvery), eng.NotifyBurst),
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "operator-notify",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("notification breaker state change")
			},
		}),
	}
}

// Notify delivers best-effort. Disabled config, rate exhaustion, an open
// breaker, and sink errors all drop the message.
func (n *Notifier) Notify(message string) {
	if n.sink == nil || !n.cfg.Current().Engine.NotifyEnabled {
		return
	}
	if !n.limiter.Allow() {
		metrics.NotificationsDropped.WithLabelValues("rate_limited").Inc()
		return
	}

	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.sink.Send(message)
	})
	if err == nil {
		return
	}

	reason := "send_error"
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		reason = "breaker_open"
	}
	metrics.NotificationsDropped.WithLabelValues(reason).Inc()
	logging.Warn().Err(err).Str("reason", reason).Msg("operator notification dropped")
}
