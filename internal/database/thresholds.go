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
	"strings"
	"time"

	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

const selectThresholdsQuery = `
	SELECT tenant_id,
		mos_warning, mos_critical,
		jitter_warning, jitter_critical,
		packet_loss_warning, packet_loss_critical,
		latency_warning, latency_critical,
		notify_channels, notify_recipients, updated_at
	FROM alert_thresholds
	WHERE tenant_id = ?`

// ThresholdsForTenant returns the tenant's configured thresholds, or
// ErrNotFound when the tenant has never configured any.
func (db *DB) ThresholdsForTenant(ctx context.Context, tenantID string) (*models.AlertThresholds, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var t models.AlertThresholds
	var channels, recipients string
	err := db.conn.QueryRowContext(ctx, selectThresholdsQuery, tenantID).Scan(
		&t.TenantID,
		&t.MOSWarning, &t.MOSCritical,
		&t.JitterWarning, &t.JitterCritical,
		&t.PacketLossWarning, &t.PacketLossCritical,
		&t.LatencyWarning, &t.LatencyCritical,
		&channels, &recipients, &t.UpdatedAt,
	)
	metrics.ObserveDBQuery("select", "alert_thresholds", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query thresholds: %w", err)
	}
	t.NotifyChannels = splitList(channels)
	t.NotifyRecipients = splitList(recipients)
	return &t, nil
}

const upsertThresholdsQuery = `
	INSERT INTO alert_thresholds (
		tenant_id,
		mos_warning, mos_critical,
		jitter_warning, jitter_critical,
		packet_loss_warning, packet_loss_critical,
		latency_warning, latency_critical,
		notify_channels, notify_recipients, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tenant_id) DO UPDATE SET
		mos_warning = EXCLUDED.mos_warning,
		mos_critical = EXCLUDED.mos_critical,
		jitter_warning = EXCLUDED.jitter_warning,
		jitter_critical = EXCLUDED.jitter_critical,
		packet_loss_warning = EXCLUDED.packet_loss_warning,
		packet_loss_critical = EXCLUDED.packet_loss_critical,
		latency_warning = EXCLUDED.latency_warning,
		latency_critical = EXCLUDED.latency_critical,
		notify_channels = EXCLUDED.notify_channels,
		notify_recipients = EXCLUDED.notify_recipients,
		updated_at = EXCLUDED.updated_at`

// UpsertThresholds stores a tenant's full threshold configuration.
func (db *DB) UpsertThresholds(ctx context.Context, t *models.AlertThresholds) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	stmt, err := db.getStmt(ctx, upsertThresholdsQuery)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		t.TenantID,
		t.MOSWarning, t.MOSCritical,
		t.JitterWarning, t.JitterCritical,
		t.PacketLossWarning, t.PacketLossCritical,
		t.LatencyWarning, t.LatencyCritical,
		joinList(t.NotifyChannels), joinList(t.NotifyRecipients), t.UpdatedAt,
	)
	metrics.ObserveDBQuery("upsert", "alert_thresholds", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert thresholds: %w", err)
	}
	return nil
}

// Notify lists are stored as comma-separated strings. Values never contain
// commas (channel names and addresses).
func joinList(values []string) string {
	return strings.Join(values, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
