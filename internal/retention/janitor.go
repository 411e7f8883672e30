// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package retention purges quality samples past their retention window.
// Summaries, alerts and scores are permanent; only the raw sample series is
// bounded.
package retention

import (
	"context"
	"time"

	"github.com/siplens/siplens/internal/logging"
	"github.com/siplens/siplens/internal/metrics"
)

// Store is the persistence surface the janitor needs.
type Store interface {
	PurgeSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor deletes expired samples on an interval under the supervision tree.
type Janitor struct {
	store         Store
	retentionDays int
	sweepInterval time.Duration
}

// NewJanitor builds a janitor.
func NewJanitor(store Store, retentionDays int, sweepInterval time.Duration) *Janitor {
	return &Janitor{
		store:         store,
		retentionDays: retentionDays,
		sweepInterval: sweepInterval,
	}
}

// Serve implements suture.Service. It sweeps once at startup, then on every
// tick until the context is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	logging.Info().
		Int("retention_days", j.retentionDays).
		Dur("sweep_interval", j.sweepInterval).
		Msg("Retention janitor started")

	j.sweep(ctx)

	ticker := time.NewTicker(j.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Retention janitor stopping")
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) String() string { return "retention-janitor" }

func (j *Janitor) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	purged, err := j.store.PurgeSamplesBefore(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Sample purge failed")
		return
	}
	if purged > 0 {
		metrics.SamplesPurged.Add(float64(purged))
		logging.Info().
			Int64("purged", purged).
			Time("cutoff", cutoff).
			Msg("Expired samples purged")
	}
}
