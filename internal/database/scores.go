// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

// DayAggregate is one entity's raw per-day aggregate computed from samples.
// The composite quality score is derived from it by the rankings package.
type DayAggregate struct {
	EntityID   string
	TotalCalls int64

	AvgMOS    float64
	MedianMOS float64
	MinMOS    float64
	MaxMOS    float64

	ExcellentCalls int64
	GoodCalls      int64
	FairCalls      int64
	PoorCalls      int64

	AvgJitter     float64
	AvgPacketLoss float64
	AvgLatency    float64
}

// dayAggregateQuery groups a tenant's samples for one UTC day into per-call
// averages first, then aggregates calls per entity. MOS bands follow the
// quality label cutoffs: Excellent >= 4.3, Good >= 4.0, Fair >= 3.6, and
// everything below 3.6 counts as poor.
const dayAggregateQuery = `
	WITH per_call AS (
		SELECT %[1]s AS entity_id, call_id,
			avg(mos) AS call_mos,
			avg((jitter_in + jitter_out) / 2) AS call_jitter,
			avg((packet_loss_in + packet_loss_out) / 2) AS call_loss,
			avg(rtt / 2) AS call_latency
		FROM quality_samples
		WHERE tenant_id = ? AND %[1]s <> '' AND ts >= ? AND ts < ?
		GROUP BY %[1]s, call_id
	)
	SELECT entity_id,
		COUNT(*) AS total_calls,
		avg(call_mos), median(call_mos), min(call_mos), max(call_mos),
		COUNT(*) FILTER (WHERE call_mos >= 4.3),
		COUNT(*) FILTER (WHERE call_mos >= 4.0 AND call_mos < 4.3),
		COUNT(*) FILTER (WHERE call_mos >= 3.6 AND call_mos < 4.0),
		COUNT(*) FILTER (WHERE call_mos < 3.6),
		avg(call_jitter), avg(call_loss), avg(call_latency)
	FROM per_call
	GROUP BY entity_id
	ORDER BY entity_id`

// CarrierDayAggregates returns per-carrier aggregates over the UTC day
// starting at dayStart. Samples without a carrier are skipped.
func (db *DB) CarrierDayAggregates(ctx context.Context, tenantID string, dayStart time.Time) ([]DayAggregate, error) {
	return db.dayAggregates(ctx, "carrier_id", tenantID, dayStart)
}

// AgentDayAggregates returns per-agent aggregates over the UTC day starting
// at dayStart. Samples without an agent are skipped.
func (db *DB) AgentDayAggregates(ctx context.Context, tenantID string, dayStart time.Time) ([]DayAggregate, error) {
	return db.dayAggregates(ctx, "agent_id", tenantID, dayStart)
}

func (db *DB) dayAggregates(ctx context.Context, column, tenantID string, dayStart time.Time) ([]DayAggregate, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(dayAggregateQuery, column)
	rows, err := db.conn.QueryContext(ctx, query, tenantID, dayStart, dayStart.Add(24*time.Hour))
	metrics.ObserveDBQuery("select", "quality_samples", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query day aggregates: %w", err)
	}
	defer closeQuietly(rows)

	var aggs []DayAggregate
	for rows.Next() {
		var a DayAggregate
		err := rows.Scan(
			&a.EntityID, &a.TotalCalls,
			&a.AvgMOS, &a.MedianMOS, &a.MinMOS, &a.MaxMOS,
			&a.ExcellentCalls, &a.GoodCalls, &a.FairCalls, &a.PoorCalls,
			&a.AvgJitter, &a.AvgPacketLoss, &a.AvgLatency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan day aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate day aggregates: %w", err)
	}
	return aggs, nil
}

// TenantsWithSamplesOn lists tenants that recorded samples during the UTC
// day starting at dayStart. The batch scorer iterates this set.
func (db *DB) TenantsWithSamplesOn(ctx context.Context, dayStart time.Time) ([]string, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT tenant_id FROM quality_samples WHERE ts >= ? AND ts < ? ORDER BY tenant_id`,
		dayStart, dayStart.Add(24*time.Hour))
	metrics.ObserveDBQuery("select", "quality_samples", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer closeQuietly(rows)

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		tenants = append(tenants, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}
	return tenants, nil
}

const upsertScoreQuery = `
	INSERT INTO %s (
		id, tenant_id, %s, score_date,
		total_calls,
		avg_mos, median_mos, min_mos, max_mos,
		excellent_calls, good_calls, fair_calls, poor_calls,
		quality_percentage,
		avg_jitter, avg_packet_loss, avg_latency,
		quality_score, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tenant_id, %s, score_date) DO UPDATE SET
		total_calls = EXCLUDED.total_calls,
		avg_mos = EXCLUDED.avg_mos,
		median_mos = EXCLUDED.median_mos,
		min_mos = EXCLUDED.min_mos,
		max_mos = EXCLUDED.max_mos,
		excellent_calls = EXCLUDED.excellent_calls,
		good_calls = EXCLUDED.good_calls,
		fair_calls = EXCLUDED.fair_calls,
		poor_calls = EXCLUDED.poor_calls,
		quality_percentage = EXCLUDED.quality_percentage,
		avg_jitter = EXCLUDED.avg_jitter,
		avg_packet_loss = EXCLUDED.avg_packet_loss,
		avg_latency = EXCLUDED.avg_latency,
		quality_score = EXCLUDED.quality_score,
		updated_at = EXCLUDED.updated_at`

// UpsertCarrierScore writes or replaces one daily carrier score row.
func (db *DB) UpsertCarrierScore(ctx context.Context, s *models.CarrierQualityScore) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(upsertScoreQuery, "carrier_scores", "carrier_id", "carrier_id")
	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		s.ID, s.TenantID, s.CarrierID, s.ScoreDate,
		s.TotalCalls,
		s.AvgMOS, s.MedianMOS, s.MinMOS, s.MaxMOS,
		s.ExcellentCalls, s.GoodCalls, s.FairCalls, s.PoorCalls,
		s.QualityPercentage,
		s.AvgJitter, s.AvgPacketLoss, s.AvgLatency,
		s.QualityScore, s.CreatedAt, s.UpdatedAt,
	)
	metrics.ObserveDBQuery("upsert", "carrier_scores", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert carrier score: %w", err)
	}
	return nil
}

// UpsertAgentScore writes or replaces one daily agent score row.
func (db *DB) UpsertAgentScore(ctx context.Context, s *models.AgentQualityScore) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(upsertScoreQuery, "agent_scores", "agent_id", "agent_id")
	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx,
		s.ID, s.TenantID, s.AgentID, s.ScoreDate,
		s.TotalCalls,
		s.AvgMOS, s.MedianMOS, s.MinMOS, s.MaxMOS,
		s.ExcellentCalls, s.GoodCalls, s.FairCalls, s.PoorCalls,
		s.QualityPercentage,
		s.AvgJitter, s.AvgPacketLoss, s.AvgLatency,
		s.QualityScore, s.CreatedAt, s.UpdatedAt,
	)
	metrics.ObserveDBQuery("upsert", "agent_scores", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert agent score: %w", err)
	}
	return nil
}

// rankingQuery aggregates daily score rows over a window into one row per
// entity. The ranking score is the plain average of the daily composite
// scores; every day in the window counts equally regardless of call volume.
// Per-metric columns stay call-weighted since they describe individual
// calls, not days. Ties on score break by call volume (more calls ranks
// higher), then entity id for a stable order.
const rankingQuery = `
	SELECT %[1]s,
		SUM(total_calls) AS calls,
		SUM(avg_mos * total_calls) / SUM(total_calls),
		SUM(median_mos * total_calls) / SUM(total_calls),
		MIN(min_mos), MAX(max_mos),
		SUM(excellent_calls), SUM(good_calls), SUM(fair_calls), SUM(poor_calls),
		SUM(avg_jitter * total_calls) / SUM(total_calls),
		SUM(avg_packet_loss * total_calls) / SUM(total_calls),
		SUM(avg_latency * total_calls) / SUM(total_calls),
		AVG(quality_score) AS score
	FROM %[2]s
	WHERE tenant_id = ? AND score_date >= ? AND score_date <= ?
		AND (? = '' OR %[1]s = ?)
	GROUP BY %[1]s
	ORDER BY score DESC, calls DESC, %[1]s ASC
	LIMIT ?`

// CarrierRankings returns carriers ranked best first over [from, to] score
// dates, with Rank populated starting at 1.
func (db *DB) CarrierRankings(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.CarrierQualityScore, error) {
	rows, err := db.rankings(ctx, "carrier_id", "carrier_scores", tenantID, "", from, to, limit)
	if err != nil {
		return nil, err
	}
	scores := make([]models.CarrierQualityScore, len(rows))
	for i, r := range rows {
		scores[i] = models.CarrierQualityScore{
			TenantID:          tenantID,
			CarrierID:         r.EntityID,
			ScoreDate:         to,
			TotalCalls:        r.TotalCalls,
			AvgMOS:            r.AvgMOS,
			MedianMOS:         r.MedianMOS,
			MinMOS:            r.MinMOS,
			MaxMOS:            r.MaxMOS,
			ExcellentCalls:    r.ExcellentCalls,
			GoodCalls:         r.GoodCalls,
			FairCalls:         r.FairCalls,
			PoorCalls:         r.PoorCalls,
			QualityPercentage: qualityPercentage(r.ExcellentCalls, r.GoodCalls, r.TotalCalls),
			AvgJitter:         r.AvgJitter,
			AvgPacketLoss:     r.AvgPacketLoss,
			AvgLatency:        r.AvgLatency,
			QualityScore:      r.score,
			Rank:              i + 1,
		}
	}
	return scores, nil
}

// AgentRankings returns agents ranked best first over [from, to] score
// dates, with Rank populated starting at 1. A non-empty agentID restricts
// the report to that agent (rank is still relative to the filtered set).
func (db *DB) AgentRankings(ctx context.Context, tenantID, agentID string, from, to time.Time, limit int) ([]models.AgentQualityScore, error) {
	rows, err := db.rankings(ctx, "agent_id", "agent_scores", tenantID, agentID, from, to, limit)
	if err != nil {
		return nil, err
	}
	scores := make([]models.AgentQualityScore, len(rows))
	for i, r := range rows {
		scores[i] = models.AgentQualityScore{
			TenantID:          tenantID,
			AgentID:           r.EntityID,
			ScoreDate:         to,
			TotalCalls:        r.TotalCalls,
			AvgMOS:            r.AvgMOS,
			MedianMOS:         r.MedianMOS,
			MinMOS:            r.MinMOS,
			MaxMOS:            r.MaxMOS,
			ExcellentCalls:    r.ExcellentCalls,
			GoodCalls:         r.GoodCalls,
			FairCalls:         r.FairCalls,
			PoorCalls:         r.PoorCalls,
			QualityPercentage: qualityPercentage(r.ExcellentCalls, r.GoodCalls, r.TotalCalls),
			AvgJitter:         r.AvgJitter,
			AvgPacketLoss:     r.AvgPacketLoss,
			AvgLatency:        r.AvgLatency,
			QualityScore:      r.score,
			Rank:              i + 1,
		}
	}
	return scores, nil
}

type rankingRow struct {
	DayAggregate
	score float64
}

func (db *DB) rankings(ctx context.Context, column, table, tenantID, entityID string, from, to time.Time, limit int) ([]rankingRow, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(rankingQuery, column, table)
	rows, err := db.conn.QueryContext(ctx, query, tenantID, from, to, entityID, entityID, limit)
	metrics.ObserveDBQuery("select", table, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer closeQuietly(rows)

	var out []rankingRow
	for rows.Next() {
		var r rankingRow
		err := rows.Scan(
			&r.EntityID, &r.TotalCalls,
			&r.AvgMOS, &r.MedianMOS, &r.MinMOS, &r.MaxMOS,
			&r.ExcellentCalls, &r.GoodCalls, &r.FairCalls, &r.PoorCalls,
			&r.AvgJitter, &r.AvgPacketLoss, &r.AvgLatency,
			&r.score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rankings: %w", err)
	}
	return out, nil
}

func qualityPercentage(excellent, good, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(excellent+good) / float64(total) * 100
}
