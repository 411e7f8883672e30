// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/siplens/siplens/internal/logging"
	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

// ThresholdSource resolves a tenant's notification preferences. The monitor
// engine satisfies this.
type ThresholdSource interface {
	Thresholds(ctx context.Context, tenantID string) (*models.AlertThresholds, error)
}

// DispatcherConfig tunes outbound notification behavior.
type DispatcherConfig struct {
	// RatePerMinute caps notifications per (tenant, call). The alert engine
	// intentionally re-alerts on every bad sample of a sustained
	// degradation; this limiter keeps that from becoming an email storm.
	RatePerMinute int
	Burst         int
	// BreakerFailures consecutive transport failures open the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Dispatcher consumes alert events from the bus and invokes the Notifier,
// applying per-call rate limiting and circuit breaking around the transport.
// Delivery is best-effort: every message is acked exactly once regardless of
// outcome, since alerts themselves are already durable.
type Dispatcher struct {
	bus        *Bus
	notifier   Notifier
	thresholds ThresholdSource
	cfg        DispatcherConfig
	breaker    *gobreaker.CircuitBreaker[any]

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(bus *Bus, notifier Notifier, thresholds ThresholdSource, cfg DispatcherConfig) *Dispatcher {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "notification-transport",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
	return &Dispatcher{
		bus:        bus,
		notifier:   notifier,
		thresholds: thresholds,
		cfg:        cfg,
		breaker:    breaker,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Serve implements suture.Service: it consumes the alert stream until the
// context is canceled.
func (d *Dispatcher) Serve(ctx context.Context) error {
	messages, err := d.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	logging.Info().Msg("Notification dispatcher started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Notification dispatcher stopping")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			d.handle(ctx, msg.Payload)
			msg.Ack()
		}
	}
}

func (d *Dispatcher) String() string { return "notification-dispatcher" }

func (d *Dispatcher) handle(ctx context.Context, payload []byte) {
	var event models.AlertEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		logging.Error().Err(err).Msg("Dropping malformed alert event")
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		return
	}

	if !d.limiter(event.TenantID + "/" + event.CallID).Allow() {
		metrics.NotificationsSent.WithLabelValues("rate_limited").Inc()
		return
	}

	thresholds, err := d.thresholds.Thresholds(ctx, event.TenantID)
	if err != nil {
		logging.Warn().Err(err).
			Str("tenant_id", event.TenantID).
			Msg("Skipping notification, threshold lookup failed")
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		return
	}
	if len(thresholds.NotifyChannels) == 0 {
		return
	}

	_, err = d.breaker.Execute(func() (any, error) {
		return nil, d.notifier.Notify(ctx, event, thresholds.NotifyChannels, thresholds.NotifyRecipients)
	})
	switch {
	case err == nil:
		metrics.NotificationsSent.WithLabelValues("sent").Inc()
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		metrics.NotificationsSent.WithLabelValues("breaker_open").Inc()
	default:
		logging.Error().Err(err).
			Str("tenant_id", event.TenantID).
			Str("call_id", event.CallID).
			Msg("Notification delivery failed")
		metrics.NotificationsSent.WithLabelValues("error").Inc()
	}
}

// limiter returns the per-(tenant, call) rate limiter, creating it lazily.
// Entries are small and calls are finite; the map is not reaped.
func (d *Dispatcher) limiter(key string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(d.cfg.RatePerMinute)), d.cfg.Burst)
		d.limiters[key] = l
	}
	return l
}
