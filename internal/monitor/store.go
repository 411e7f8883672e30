// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/siplens/siplens/internal/models"
)

// Store is the persistence surface the engine needs. *database.DB is the
// production implementation; tests substitute an in-memory fake. Absent
// rows are reported as database.ErrNotFound.
type Store interface {
	InsertSample(ctx context.Context, s *models.QualitySample) error
	SamplesForCall(ctx context.Context, tenantID, callID string) ([]models.QualitySample, error)

	UpsertSummary(ctx context.Context, s *models.CallQualitySummary) error
	SummaryForCall(ctx context.Context, tenantID, callID string) (*models.CallQualitySummary, error)

	InsertAlert(ctx context.Context, a *models.QualityAlert) error
	AlertByID(ctx context.Context, tenantID string, alertID uuid.UUID) (*models.QualityAlert, error)
	AlertsForCall(ctx context.Context, tenantID, callID string) ([]models.QualityAlert, error)
	AlertCountForCall(ctx context.Context, tenantID, callID string) (int64, error)
	UnacknowledgedAlerts(ctx context.Context, tenantID string, severity models.AlertSeverity, limit, offset int) ([]models.QualityAlert, int64, error)
	AcknowledgeAlert(ctx context.Context, tenantID string, alertID uuid.UUID, by string, at time.Time) error
	AcknowledgeAlertsForCall(ctx context.Context, tenantID, callID, by string, at time.Time) (int64, error)

	ThresholdsForTenant(ctx context.Context, tenantID string) (*models.AlertThresholds, error)
	UpsertThresholds(ctx context.Context, t *models.AlertThresholds) error
}

// Publisher forwards alert events to the notification pipeline. Delivery is
// best-effort from the engine's perspective.
type Publisher interface {
	PublishAlert(ctx context.Context, event models.AlertEvent) error
}
