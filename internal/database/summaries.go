// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

const upsertSummaryQuery = `
	INSERT INTO call_summaries (
		id, call_id, tenant_id,
		avg_mos, min_mos, max_mos,
		avg_jitter, max_jitter,
		avg_packet_loss, max_packet_loss,
		avg_latency, max_latency,
		sample_count, alert_count, dominant_codec,
		carrier_id, agent_id, direction, final_quality,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tenant_id, call_id) DO UPDATE SET
		avg_mos = EXCLUDED.avg_mos,
		min_mos = EXCLUDED.min_mos,
		max_mos = EXCLUDED.max_mos,
		avg_jitter = EXCLUDED.avg_jitter,
		max_jitter = EXCLUDED.max_jitter,
		avg_packet_loss = EXCLUDED.avg_packet_loss,
		max_packet_loss = EXCLUDED.max_packet_loss,
		avg_latency = EXCLUDED.avg_latency,
		max_latency = EXCLUDED.max_latency,
		sample_count = EXCLUDED.sample_count,
		alert_count = EXCLUDED.alert_count,
		dominant_codec = EXCLUDED.dominant_codec,
		carrier_id = EXCLUDED.carrier_id,
		agent_id = EXCLUDED.agent_id,
		direction = EXCLUDED.direction,
		final_quality = EXCLUDED.final_quality,
		updated_at = EXCLUDED.updated_at`

// UpsertSummary writes or replaces a call's summary row. Re-summarizing a
// call after late samples overwrites the previous aggregates.
func (db *DB) UpsertSummary(ctx context.Context, s *models.CallQualitySummary) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	stmt, err := db.getStmt(ctx, upsertSummaryQuery)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		s.ID, s.CallID, s.TenantID,
		s.AvgMOS, s.MinMOS, s.MaxMOS,
		s.AvgJitter, s.MaxJitter,
		s.AvgPacketLoss, s.MaxPacketLoss,
		s.AvgLatency, s.MaxLatency,
		s.SampleCount, s.AlertCount, s.DominantCodec,
		s.CarrierID, s.AgentID, string(s.Direction), s.FinalQuality,
		s.CreatedAt, s.UpdatedAt,
	)
	metrics.ObserveDBQuery("upsert", "call_summaries", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

const selectSummaryQuery = `
	SELECT id, call_id, tenant_id,
		avg_mos, min_mos, max_mos,
		avg_jitter, max_jitter,
		avg_packet_loss, max_packet_loss,
		avg_latency, max_latency,
		sample_count, alert_count, dominant_codec,
		carrier_id, agent_id, direction, final_quality,
		created_at, updated_at
	FROM call_summaries
	WHERE tenant_id = ? AND call_id = ?`

// SummaryForCall returns the stored summary, or ErrNotFound when the call
// has not been summarized.
func (db *DB) SummaryForCall(ctx context.Context, tenantID, callID string) (*models.CallQualitySummary, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var s models.CallQualitySummary
	var direction string
	err := db.conn.QueryRowContext(ctx, selectSummaryQuery, tenantID, callID).Scan(
		&s.ID, &s.CallID, &s.TenantID,
		&s.AvgMOS, &s.MinMOS, &s.MaxMOS,
		&s.AvgJitter, &s.MaxJitter,
		&s.AvgPacketLoss, &s.MaxPacketLoss,
		&s.AvgLatency, &s.MaxLatency,
		&s.SampleCount, &s.AlertCount, &s.DominantCodec,
		&s.CarrierID, &s.AgentID, &direction, &s.FinalQuality,
		&s.CreatedAt, &s.UpdatedAt,
	)
	metrics.ObserveDBQuery("select", "call_summaries", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	s.Direction = models.CallDirection(direction)
	return &s, nil
}
