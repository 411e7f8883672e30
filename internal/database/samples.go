// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

const insertSampleQuery = `
	INSERT INTO quality_samples (
		id, call_id, tenant_id, ts, codec,
		jitter_in, jitter_out, packet_loss_in, packet_loss_out, rtt,
		packets_sent, packets_received, packets_lost,
		mos, r_factor, quality_label,
		carrier_id, agent_id, direction, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertSample appends a scored sample. Samples are never updated.
func (db *DB) InsertSample(ctx context.Context, s *models.QualitySample) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	stmt, err := db.getStmt(ctx, insertSampleQuery)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		s.ID, s.CallID, s.TenantID, s.Timestamp, s.Codec,
		s.JitterIn, s.JitterOut, s.PacketLossIn, s.PacketLossOut, s.RTT,
		s.PacketsSent, s.PacketsReceived, s.PacketsLost,
		s.MOS, s.RFactor, s.QualityLabel,
		s.CarrierID, s.AgentID, string(s.Direction), s.CreatedAt,
	)
	metrics.ObserveDBQuery("insert", "quality_samples", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

const selectSamplesQuery = `
	SELECT id, call_id, tenant_id, ts, codec,
		jitter_in, jitter_out, packet_loss_in, packet_loss_out, rtt,
		packets_sent, packets_received, packets_lost,
		mos, r_factor, quality_label,
		carrier_id, agent_id, direction, created_at
	FROM quality_samples
	WHERE tenant_id = ? AND call_id = ?
	ORDER BY ts ASC, created_at ASC`

// SamplesForCall returns a call's samples in arrival order. An unknown call
// returns an empty slice, not an error.
func (db *DB) SamplesForCall(ctx context.Context, tenantID, callID string) ([]models.QualitySample, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, selectSamplesQuery, tenantID, callID)
	metrics.ObserveDBQuery("select", "quality_samples", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer closeQuietly(rows)

	samples := make([]models.QualitySample, 0, 16)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return samples, nil
}

func scanSample(rows *sql.Rows) (models.QualitySample, error) {
	var s models.QualitySample
	var direction string
	err := rows.Scan(
		&s.ID, &s.CallID, &s.TenantID, &s.Timestamp, &s.Codec,
		&s.JitterIn, &s.JitterOut, &s.PacketLossIn, &s.PacketLossOut, &s.RTT,
		&s.PacketsSent, &s.PacketsReceived, &s.PacketsLost,
		&s.MOS, &s.RFactor, &s.QualityLabel,
		&s.CarrierID, &s.AgentID, &direction, &s.CreatedAt,
	)
	if err != nil {
		return s, fmt.Errorf("failed to scan sample: %w", err)
	}
	s.Direction = models.CallDirection(direction)
	return s, nil
}

// PurgeSamplesBefore deletes samples older than the cutoff, returning the
// number of rows removed. Summaries, alerts and scores are never purged.
func (db *DB) PurgeSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM quality_samples WHERE created_at < ?`, cutoff)
	metrics.ObserveDBQuery("delete", "quality_samples", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to purge samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged samples: %w", err)
	}
	return n, nil
}
