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

	"github.com/google/uuid"

	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

const insertAlertQuery = `
	INSERT INTO quality_alerts (
		id, call_id, tenant_id, alert_type, severity,
		metric_value, threshold, message,
		acknowledged, acknowledged_by, acknowledged_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertAlert records a threshold crossing.
func (db *DB) InsertAlert(ctx context.Context, a *models.QualityAlert) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	stmt, err := db.getStmt(ctx, insertAlertQuery)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		a.ID, a.CallID, a.TenantID, string(a.Type), string(a.Severity),
		a.MetricValue, a.Threshold, a.Message,
		a.Acknowledged, a.AcknowledgedBy, a.AcknowledgedAt, a.CreatedAt,
	)
	metrics.ObserveDBQuery("insert", "quality_alerts", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

const selectUnackedAlertsQuery = `
	SELECT id, call_id, tenant_id, alert_type, severity,
		metric_value, threshold, message,
		acknowledged, acknowledged_by, acknowledged_at, created_at
	FROM quality_alerts
	WHERE tenant_id = ? AND NOT acknowledged AND (? = '' OR severity = ?)
	ORDER BY created_at DESC, id
	LIMIT ? OFFSET ?`

// UnacknowledgedAlerts returns a page of open alerts, newest first, plus the
// total matching count for pagination. An empty severity matches all.
func (db *DB) UnacknowledgedAlerts(ctx context.Context, tenantID string, severity models.AlertSeverity, limit, offset int) ([]models.QualityAlert, int64, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	sev := string(severity)
	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quality_alerts WHERE tenant_id = ? AND NOT acknowledged AND (? = '' OR severity = ?)`,
		tenantID, sev, sev).Scan(&total)
	if err != nil {
		metrics.ObserveDBQuery("select", "quality_alerts", start, err)
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, selectUnackedAlertsQuery, tenantID, sev, sev, limit, offset)
	metrics.ObserveDBQuery("select", "quality_alerts", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer closeQuietly(rows)

	alerts := make([]models.QualityAlert, 0, limit)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, total, nil
}

const selectAlertsForCallQuery = `
	SELECT id, call_id, tenant_id, alert_type, severity,
		metric_value, threshold, message,
		acknowledged, acknowledged_by, acknowledged_at, created_at
	FROM quality_alerts
	WHERE tenant_id = ? AND call_id = ?
	ORDER BY created_at ASC, id`

// AlertsForCall returns all alerts for a call, oldest first.
func (db *DB) AlertsForCall(ctx context.Context, tenantID, callID string) ([]models.QualityAlert, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, selectAlertsForCallQuery, tenantID, callID)
	metrics.ObserveDBQuery("select", "quality_alerts", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer closeQuietly(rows)

	var alerts []models.QualityAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// AlertCountForCall returns the number of alerts raised for a call.
func (db *DB) AlertCountForCall(ctx context.Context, tenantID, callID string) (int64, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quality_alerts WHERE tenant_id = ? AND call_id = ?`,
		tenantID, callID).Scan(&count)
	metrics.ObserveDBQuery("select", "quality_alerts", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

const selectAlertByIDQuery = `
	SELECT id, call_id, tenant_id, alert_type, severity,
		metric_value, threshold, message,
		acknowledged, acknowledged_by, acknowledged_at, created_at
	FROM quality_alerts
	WHERE tenant_id = ? AND id = ?`

// AlertByID returns one alert, or ErrNotFound.
func (db *DB) AlertByID(ctx context.Context, tenantID string, alertID uuid.UUID) (*models.QualityAlert, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, selectAlertByIDQuery, tenantID, alertID)
	metrics.ObserveDBQuery("select", "quality_alerts", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}
	defer closeQuietly(rows)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query alert: %w", err)
		}
		return nil, ErrNotFound
	}
	a, err := scanAlert(rows)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AcknowledgeAlert marks one alert acknowledged. Acknowledging an already
// acknowledged alert is a no-op that preserves the original acknowledgment.
// Returns ErrNotFound when the alert does not exist for the tenant.
func (db *DB) AcknowledgeAlert(ctx context.Context, tenantID string, alertID uuid.UUID, by string, at time.Time) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) > 0 FROM quality_alerts WHERE tenant_id = ? AND id = ?`,
		tenantID, alertID).Scan(&exists)
	if err != nil {
		metrics.ObserveDBQuery("update", "quality_alerts", start, err)
		return fmt.Errorf("failed to look up alert: %w", err)
	}
	if !exists {
		metrics.ObserveDBQuery("update", "quality_alerts", start, nil)
		return ErrNotFound
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE quality_alerts
		 SET acknowledged = TRUE, acknowledged_by = ?, acknowledged_at = ?
		 WHERE tenant_id = ? AND id = ? AND NOT acknowledged`,
		by, at, tenantID, alertID)
	metrics.ObserveDBQuery("update", "quality_alerts", start, err)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return nil
}

// AcknowledgeAlertsForCall acknowledges every open alert for a call,
// returning how many were newly acknowledged.
func (db *DB) AcknowledgeAlertsForCall(ctx context.Context, tenantID, callID, by string, at time.Time) (int64, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE quality_alerts
		 SET acknowledged = TRUE, acknowledged_by = ?, acknowledged_at = ?
		 WHERE tenant_id = ? AND call_id = ? AND NOT acknowledged`,
		by, at, tenantID, callID)
	metrics.ObserveDBQuery("update", "quality_alerts", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to acknowledge call alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count acknowledged alerts: %w", err)
	}
	return n, nil
}

func scanAlert(rows *sql.Rows) (models.QualityAlert, error) {
	var a models.QualityAlert
	var alertType, severity string
	var ackedAt sql.NullTime
	err := rows.Scan(
		&a.ID, &a.CallID, &a.TenantID, &alertType, &severity,
		&a.MetricValue, &a.Threshold, &a.Message,
		&a.Acknowledged, &a.AcknowledgedBy, &ackedAt, &a.CreatedAt,
	)
	if err != nil {
		return a, fmt.Errorf("failed to scan alert: %w", err)
	}
	a.Type = models.AlertType(alertType)
	a.Severity = models.AlertSeverity(severity)
	if ackedAt.Valid {
		t := ackedAt.Time
		a.AcknowledgedAt = &t
	}
	return a, nil
}
