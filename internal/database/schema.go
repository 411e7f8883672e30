// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package database

import (
	"fmt"

	"github.com/siplens/siplens/internal/logging"
)

// schemaStatements are executed in order on startup. All DDL is idempotent
// so restarts against an existing database file are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS quality_samples (
		id UUID PRIMARY KEY,
		call_id VARCHAR NOT NULL,
		tenant_id VARCHAR NOT NULL,
		ts TIMESTAMP NOT NULL,
		codec VARCHAR NOT NULL DEFAULT '',
		jitter_in DOUBLE NOT NULL DEFAULT 0,
		jitter_out DOUBLE NOT NULL DEFAULT 0,
		packet_loss_in DOUBLE NOT NULL DEFAULT 0,
		packet_loss_out DOUBLE NOT NULL DEFAULT 0,
		rtt DOUBLE NOT NULL DEFAULT 0,
		packets_sent BIGINT NOT NULL DEFAULT 0,
		packets_received BIGINT NOT NULL DEFAULT 0,
		packets_lost BIGINT NOT NULL DEFAULT 0,
		mos DOUBLE NOT NULL,
		r_factor DOUBLE NOT NULL,
		quality_label VARCHAR NOT NULL,
		carrier_id VARCHAR NOT NULL DEFAULT '',
		agent_id VARCHAR NOT NULL DEFAULT '',
		direction VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_tenant_call ON quality_samples (tenant_id, call_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_created ON quality_samples (created_at)`,

	`CREATE TABLE IF NOT EXISTS call_summaries (
		id UUID PRIMARY KEY,
		call_id VARCHAR NOT NULL,
		tenant_id VARCHAR NOT NULL,
		avg_mos DOUBLE NOT NULL,
		min_mos DOUBLE NOT NULL,
		max_mos DOUBLE NOT NULL,
		avg_jitter DOUBLE NOT NULL,
		max_jitter DOUBLE NOT NULL,
		avg_packet_loss DOUBLE NOT NULL,
		max_packet_loss DOUBLE NOT NULL,
		avg_latency DOUBLE NOT NULL,
		max_latency DOUBLE NOT NULL,
		sample_count BIGINT NOT NULL,
		alert_count BIGINT NOT NULL,
		dominant_codec VARCHAR NOT NULL DEFAULT '',
		carrier_id VARCHAR NOT NULL DEFAULT '',
		agent_id VARCHAR NOT NULL DEFAULT '',
		direction VARCHAR NOT NULL DEFAULT '',
		final_quality VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (tenant_id, call_id)
	)`,

	`CREATE TABLE IF NOT EXISTS quality_alerts (
		id UUID PRIMARY KEY,
		call_id VARCHAR NOT NULL,
		tenant_id VARCHAR NOT NULL,
		alert_type VARCHAR NOT NULL,
		severity VARCHAR NOT NULL,
		metric_value DOUBLE NOT NULL,
		threshold DOUBLE NOT NULL,
		message VARCHAR NOT NULL DEFAULT '',
		acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
		acknowledged_by VARCHAR NOT NULL DEFAULT '',
		acknowledged_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_tenant_ack ON quality_alerts (tenant_id, acknowledged, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_call ON quality_alerts (tenant_id, call_id)`,

	`CREATE TABLE IF NOT EXISTS alert_thresholds (
		tenant_id VARCHAR PRIMARY KEY,
		mos_warning DOUBLE NOT NULL,
		mos_critical DOUBLE NOT NULL,
		jitter_warning DOUBLE NOT NULL,
		jitter_critical DOUBLE NOT NULL,
		packet_loss_warning DOUBLE NOT NULL,
		packet_loss_critical DOUBLE NOT NULL,
		latency_warning DOUBLE NOT NULL,
		latency_critical DOUBLE NOT NULL,
		notify_channels VARCHAR NOT NULL DEFAULT '',
		notify_recipients VARCHAR NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS carrier_scores (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR NOT NULL,
		carrier_id VARCHAR NOT NULL,
		score_date DATE NOT NULL,
		total_calls BIGINT NOT NULL,
		avg_mos DOUBLE NOT NULL,
		median_mos DOUBLE NOT NULL,
		min_mos DOUBLE NOT NULL,
		max_mos DOUBLE NOT NULL,
		excellent_calls BIGINT NOT NULL,
		good_calls BIGINT NOT NULL,
		fair_calls BIGINT NOT NULL,
		poor_calls BIGINT NOT NULL,
		quality_percentage DOUBLE NOT NULL,
		avg_jitter DOUBLE NOT NULL,
		avg_packet_loss DOUBLE NOT NULL,
		avg_latency DOUBLE NOT NULL,
		quality_score DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (tenant_id, carrier_id, score_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_carrier_scores_date ON carrier_scores (tenant_id, score_date)`,

	`CREATE TABLE IF NOT EXISTS agent_scores (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR NOT NULL,
		agent_id VARCHAR NOT NULL,
		score_date DATE NOT NULL,
		total_calls BIGINT NOT NULL,
		avg_mos DOUBLE NOT NULL,
		median_mos DOUBLE NOT NULL,
		min_mos DOUBLE NOT NULL,
		max_mos DOUBLE NOT NULL,
		excellent_calls BIGINT NOT NULL,
		good_calls BIGINT NOT NULL,
		fair_calls BIGINT NOT NULL,
		poor_calls BIGINT NOT NULL,
		quality_percentage DOUBLE NOT NULL,
		avg_jitter DOUBLE NOT NULL,
		avg_packet_loss DOUBLE NOT NULL,
		avg_latency DOUBLE NOT NULL,
		quality_score DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (tenant_id, agent_id, score_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_scores_date ON agent_scores (tenant_id, score_date)`,
}

// initialize creates all tables and indexes.
func (db *DB) initialize() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	logging.Debug().Int("statements", len(schemaStatements)).Msg("Schema initialized")
	return nil
}
