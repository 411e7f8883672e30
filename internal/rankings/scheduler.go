// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package rankings

import (
	"context"
	"time"

	"github.com/siplens/siplens/internal/logging"
)

// Service runs the scoring batch on an interval under the supervision tree.
// Each run rescores the current UTC day and the previous one, so samples
// recorded around the midnight boundary are always folded into a final row.
type Service struct {
	scorer   *Scorer
	interval time.Duration
}

// NewService builds the scheduler service.
func NewService(scorer *Scorer, interval time.Duration) *Service {
	return &Service{scorer: scorer, interval: interval}
}

// Serve implements suture.Service. It runs one pass immediately, then on
// every tick until the context is canceled.
func (s *Service) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("Rankings scheduler started")

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Rankings scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Service) run(ctx context.Context) {
	now := time.Now().UTC()
	if err := s.scorer.RunAll(ctx, now); err != nil {
		logging.Error().Err(err).Msg("Scoring run failed for current day")
	}
	if err := s.scorer.RunAll(ctx, now.AddDate(0, 0, -1)); err != nil {
		logging.Error().Err(err).Msg("Scoring run failed for previous day")
	}
}

func (s *Service) String() string { return "rankings-scheduler" }
