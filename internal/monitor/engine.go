// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package monitor implements the call quality engine: scoring and recording
// telemetry samples, threshold alerting, call summarization and heuristic
// diagnostics. All state lives behind the Store interface; the engine itself
// only caches tenant thresholds.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siplens/siplens/internal/cache"
	"github.com/siplens/siplens/internal/database"
	"github.com/siplens/siplens/internal/emodel"
	"github.com/siplens/siplens/internal/logging"
	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
	"github.com/siplens/siplens/internal/validation"
)

// Engine scores, records and evaluates telemetry samples. Safe for
// concurrent use; calls are independent and share no state beyond the store
// and the threshold cache.
type Engine struct {
	store     Store
	publisher Publisher
	cache     *cache.Cache
	cacheTTL  time.Duration
}

// NewEngine builds an engine. publisher may be nil when notification
// forwarding is disabled.
func NewEngine(store Store, publisher Publisher, thresholdCacheTTL time.Duration) *Engine {
	return &Engine{
		store:     store,
		publisher: publisher,
		cache:     cache.New(thresholdCacheTTL),
		cacheTTL:  thresholdCacheTTL,
	}
}

// Record scores one telemetry snapshot, persists it and evaluates the
// tenant's alert thresholds against the result. The returned alerts are the
// ones durably recorded for this sample. A persistence failure on the sample
// itself is propagated; alert writes and event publishing are best-effort
// side effects that never fail a recorded sample.
func (e *Engine) Record(ctx context.Context, tenantID, callID string, tel models.TelemetrySnapshot, callCtx models.CallContext) (*models.QualitySample, []models.QualityAlert, error) {
	if verr := validation.ValidateStruct(&tel); verr != nil {
		return nil, nil, verr
	}

	score := emodel.FromTelemetry(tel)
	now := time.Now().UTC()

	sample := &models.QualitySample{
		ID:              uuid.New(),
		CallID:          callID,
		TenantID:        tenantID,
		Timestamp:       now,
		Codec:           tel.Codec,
		JitterIn:        tel.JitterIn,
		JitterOut:       tel.JitterOut,
		PacketLossIn:    tel.PacketLossIn,
		PacketLossOut:   tel.PacketLossOut,
		RTT:             tel.RTT,
		PacketsSent:     tel.PacketsSent,
		PacketsReceived: tel.PacketsReceived,
		PacketsLost:     tel.PacketsLost,
		MOS:             score.MOS,
		RFactor:         score.RFactor,
		QualityLabel:    score.Label,
		CarrierID:       callCtx.CarrierID,
		AgentID:         callCtx.AgentID,
		Direction:       callCtx.Direction,
		CreatedAt:       now,
	}

	if err := e.store.InsertSample(ctx, sample); err != nil {
		return nil, nil, fmt.Errorf("recording sample for call %s: %w", callID, err)
	}
	metrics.SamplesRecorded.WithLabelValues(tenantID, score.Label).Inc()
	metrics.SampleMOS.Observe(score.MOS)

	alerts := e.evaluate(ctx, sample)
	return sample, alerts, nil
}

// Thresholds returns the tenant's effective thresholds: the configured row
// if one exists, the system defaults otherwise. Results are cached with a
// short TTL since they are read on every sample.
func (e *Engine) Thresholds(ctx context.Context, tenantID string) (*models.AlertThresholds, error) {
	key := "thresholds:" + tenantID
	if v, ok := e.cache.Get(key); ok {
		metrics.ThresholdCacheHits.Inc()
		t := v.(models.AlertThresholds)
		return &t, nil
	}
	metrics.ThresholdCacheMisses.Inc()

	t, err := e.store.ThresholdsForTenant(ctx, tenantID)
	if errors.Is(err, database.ErrNotFound) {
		def := models.DefaultThresholds()
		def.TenantID = tenantID
		t = &def
	} else if err != nil {
		return nil, fmt.Errorf("loading thresholds for tenant %s: %w", tenantID, err)
	}

	e.cache.SetWithTTL(key, *t, e.cacheTTL)
	return t, nil
}

// UpdateThresholds merges a partial update into the tenant's current
// thresholds (or the defaults for a first-time configuration), persists the
// result and invalidates the cache. Unset fields keep their previous values.
func (e *Engine) UpdateThresholds(ctx context.Context, tenantID string, update models.ThresholdUpdate) (*models.AlertThresholds, error) {
	if verr := validation.ValidateStruct(&update); verr != nil {
		return nil, verr
	}

	current, err := e.store.ThresholdsForTenant(ctx, tenantID)
	if errors.Is(err, database.ErrNotFound) {
		def := models.DefaultThresholds()
		current = &def
	} else if err != nil {
		return nil, fmt.Errorf("loading thresholds for tenant %s: %w", tenantID, err)
	}

	merged := current.Apply(update)
	merged.TenantID = tenantID
	merged.UpdatedAt = time.Now().UTC()

	if err := e.store.UpsertThresholds(ctx, &merged); err != nil {
		return nil, fmt.Errorf("storing thresholds for tenant %s: %w", tenantID, err)
	}
	e.cache.Delete("thresholds:" + tenantID)

	logging.Info().
		Str("tenant_id", tenantID).
		Msg("Alert thresholds updated")
	return &merged, nil
}

// CallMetrics returns a call's sample series in arrival order.
func (e *Engine) CallMetrics(ctx context.Context, tenantID, callID string) ([]models.QualitySample, error) {
	return e.store.SamplesForCall(ctx, tenantID, callID)
}

// CallSummary returns the stored summary, or nil when the call has not been
// summarized. Absence is an expected state, not an error.
func (e *Engine) CallSummary(ctx context.Context, tenantID, callID string) (*models.CallQualitySummary, error) {
	s, err := e.store.SummaryForCall(ctx, tenantID, callID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// CallAlerts returns every alert raised for a call, oldest first.
func (e *Engine) CallAlerts(ctx context.Context, tenantID, callID string) ([]models.QualityAlert, error) {
	return e.store.AlertsForCall(ctx, tenantID, callID)
}

// UnacknowledgedAlerts returns one page of open alerts, newest first. page
// is 1-based; an empty severity matches all severities.
func (e *Engine) UnacknowledgedAlerts(ctx context.Context, tenantID string, severity models.AlertSeverity, page, limit int) (*models.AlertsPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	offset := (page - 1) * limit

	alerts, total, err := e.store.UnacknowledgedAlerts(ctx, tenantID, severity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing alerts for tenant %s: %w", tenantID, err)
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return &models.AlertsPage{
		Alerts: alerts,
		Pagination: models.PaginationInfo{
			Page:       page,
			Limit:      limit,
			TotalCount: total,
			TotalPages: totalPages,
		},
	}, nil
}

// AcknowledgeAlert marks an alert acknowledged by a user and returns the
// updated row. Idempotent: re-acknowledging keeps the first acknowledgment.
func (e *Engine) AcknowledgeAlert(ctx context.Context, tenantID string, alertID uuid.UUID, userID string) (*models.QualityAlert, error) {
	if err := e.store.AcknowledgeAlert(ctx, tenantID, alertID, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return e.store.AlertByID(ctx, tenantID, alertID)
}

// AcknowledgeAllForCall acknowledges every open alert for a call, returning
// how many were newly acknowledged.
func (e *Engine) AcknowledgeAllForCall(ctx context.Context, tenantID, callID, userID string) (int64, error) {
	return e.store.AcknowledgeAlertsForCall(ctx, tenantID, callID, userID, time.Now().UTC())
}
