// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package rankings implements the daily carrier and agent quality scoring
// batch job and the ranking queries built on its output.
package rankings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siplens/siplens/internal/database"
	"github.com/siplens/siplens/internal/logging"
	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

// Composite score weights. Each sub-score is normalized to 0-100 first.
const (
	weightMOS        = 0.50
	weightPacketLoss = 0.20
	weightJitter     = 0.15
	weightLatency    = 0.15
)

// Store is the persistence surface the scorer needs.
type Store interface {
	TenantsWithSamplesOn(ctx context.Context, dayStart time.Time) ([]string, error)
	CarrierDayAggregates(ctx context.Context, tenantID string, dayStart time.Time) ([]database.DayAggregate, error)
	AgentDayAggregates(ctx context.Context, tenantID string, dayStart time.Time) ([]database.DayAggregate, error)
	UpsertCarrierScore(ctx context.Context, s *models.CarrierQualityScore) error
	UpsertAgentScore(ctx context.Context, s *models.AgentQualityScore) error
	CarrierRankings(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.CarrierQualityScore, error)
	AgentRankings(ctx context.Context, tenantID, agentID string, from, to time.Time, limit int) ([]models.AgentQualityScore, error)
}

// Scorer computes daily composite quality scores per carrier and per agent.
// Runs are idempotent: the (tenant, entity, date) row is upserted, so reruns
// for the same day overwrite prior values with equivalent results.
type Scorer struct {
	store      Store
	windowDays int
}

// NewScorer builds a scorer. windowDays is the default trailing window for
// ranking queries.
func NewScorer(store Store, windowDays int) *Scorer {
	return &Scorer{store: store, windowDays: windowDays}
}

// CompositeScore blends the normalized sub-scores into the 0-100 composite.
func CompositeScore(avgMOS, avgPacketLoss, avgJitter, avgLatency float64) float64 {
	mosScore := avgMOS / 5 * 100
	lossScore := max(0, 100-avgPacketLoss*10)
	jitterScore := max(0, 100-avgJitter*2)
	latencyScore := max(0, 100-avgLatency/2)
	return weightMOS*mosScore + weightPacketLoss*lossScore + weightJitter*jitterScore + weightLatency*latencyScore
}

// UpdateCarrierScores rescores one tenant's carriers for the UTC day
// containing date. A failure for one carrier does not abort the others; the
// returned slice holds the rows that were written.
func (s *Scorer) UpdateCarrierScores(ctx context.Context, tenantID string, date time.Time) ([]models.CarrierQualityScore, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	start := time.Now()

	aggs, err := s.store.CarrierDayAggregates(ctx, tenantID, day)
	if err != nil {
		metrics.RankingsBatchErrors.WithLabelValues("carrier").Inc()
		return nil, fmt.Errorf("aggregating carriers for tenant %s: %w", tenantID, err)
	}

	now := time.Now().UTC()
	scores := make([]models.CarrierQualityScore, 0, len(aggs))
	for _, agg := range aggs {
		score := models.CarrierQualityScore{
			ID:                uuid.New(),
			TenantID:          tenantID,
			CarrierID:         agg.EntityID,
			ScoreDate:         day,
			TotalCalls:        agg.TotalCalls,
			AvgMOS:            agg.AvgMOS,
			MedianMOS:         agg.MedianMOS,
			MinMOS:            agg.MinMOS,
			MaxMOS:            agg.MaxMOS,
			ExcellentCalls:    agg.ExcellentCalls,
			GoodCalls:         agg.GoodCalls,
			FairCalls:         agg.FairCalls,
			PoorCalls:         agg.PoorCalls,
			QualityPercentage: qualityPercentage(agg),
			AvgJitter:         agg.AvgJitter,
			AvgPacketLoss:     agg.AvgPacketLoss,
			AvgLatency:        agg.AvgLatency,
			QualityScore:      CompositeScore(agg.AvgMOS, agg.AvgPacketLoss, agg.AvgJitter, agg.AvgLatency),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.store.UpsertCarrierScore(ctx, &score); err != nil {
			metrics.RankingsBatchErrors.WithLabelValues("carrier").Inc()
			logging.Error().Err(err).
				Str("tenant_id", tenantID).
				Str("carrier_id", agg.EntityID).
				Msg("Failed to upsert carrier score")
			continue
		}
		scores = append(scores, score)
	}

	metrics.RankingsBatchDuration.WithLabelValues("carrier").Observe(time.Since(start).Seconds())
	return scores, nil
}

// UpdateAgentScores is the per-agent equivalent of UpdateCarrierScores.
func (s *Scorer) UpdateAgentScores(ctx context.Context, tenantID string, date time.Time) ([]models.AgentQualityScore, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	start := time.Now()

	aggs, err := s.store.AgentDayAggregates(ctx, tenantID, day)
	if err != nil {
		metrics.RankingsBatchErrors.WithLabelValues("agent").Inc()
		return nil, fmt.Errorf("aggregating agents for tenant %s: %w", tenantID, err)
	}

	now := time.Now().UTC()
	scores := make([]models.AgentQualityScore, 0, len(aggs))
	for _, agg := range aggs {
		score := models.AgentQualityScore{
			ID:                uuid.New(),
			TenantID:          tenantID,
			AgentID:           agg.EntityID,
			ScoreDate:         day,
			TotalCalls:        agg.TotalCalls,
			AvgMOS:            agg.AvgMOS,
			MedianMOS:         agg.MedianMOS,
			MinMOS:            agg.MinMOS,
			MaxMOS:            agg.MaxMOS,
			ExcellentCalls:    agg.ExcellentCalls,
			GoodCalls:         agg.GoodCalls,
			FairCalls:         agg.FairCalls,
			PoorCalls:         agg.PoorCalls,
			QualityPercentage: qualityPercentage(agg),
			AvgJitter:         agg.AvgJitter,
			AvgPacketLoss:     agg.AvgPacketLoss,
			AvgLatency:        agg.AvgLatency,
			QualityScore:      CompositeScore(agg.AvgMOS, agg.AvgPacketLoss, agg.AvgJitter, agg.AvgLatency),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.store.UpsertAgentScore(ctx, &score); err != nil {
			metrics.RankingsBatchErrors.WithLabelValues("agent").Inc()
			logging.Error().Err(err).
				Str("tenant_id", tenantID).
				Str("agent_id", agg.EntityID).
				Msg("Failed to upsert agent score")
			continue
		}
		scores = append(scores, score)
	}

	metrics.RankingsBatchDuration.WithLabelValues("agent").Observe(time.Since(start).Seconds())
	return scores, nil
}

// RunAll rescores every tenant that produced samples on the given day. A
// failing tenant is logged and skipped; the run continues.
func (s *Scorer) RunAll(ctx context.Context, date time.Time) error {
	day := date.UTC().Truncate(24 * time.Hour)
	tenants, err := s.store.TenantsWithSamplesOn(ctx, day)
	if err != nil {
		return fmt.Errorf("listing tenants for %s: %w", day.Format("2006-01-02"), err)
	}

	for _, tenantID := range tenants {
		if _, err := s.UpdateCarrierScores(ctx, tenantID, day); err != nil {
			logging.Error().Err(err).Str("tenant_id", tenantID).Msg("Carrier scoring failed")
		}
		if _, err := s.UpdateAgentScores(ctx, tenantID, day); err != nil {
			logging.Error().Err(err).Str("tenant_id", tenantID).Msg("Agent scoring failed")
		}
	}

	logging.Info().
		Str("date", day.Format("2006-01-02")).
		Int("tenants", len(tenants)).
		Msg("Quality scoring run complete")
	return nil
}

// CarrierRankings returns carriers ranked by their average daily composite
// score over a trailing window ending today. days <= 0 uses the configured
// default window.
func (s *Scorer) CarrierRankings(ctx context.Context, tenantID string, days, limit int) ([]models.CarrierQualityScore, error) {
	from, to := s.window(days)
	return s.store.CarrierRankings(ctx, tenantID, from, to, limit)
}

// AgentQualityReport returns ranked agent scores over a trailing window,
// optionally restricted to one agent.
func (s *Scorer) AgentQualityReport(ctx context.Context, tenantID, agentID string, days, limit int) ([]models.AgentQualityScore, error) {
	from, to := s.window(days)
	return s.store.AgentRankings(ctx, tenantID, agentID, from, to, limit)
}

func (s *Scorer) window(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = s.windowDays
	}
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))
	return from, to
}

func qualityPercentage(agg database.DayAggregate) float64 {
	if agg.TotalCalls == 0 {
		return 0
	}
	return float64(agg.ExcellentCalls+agg.GoodCalls) / float64(agg.TotalCalls) * 100
}
