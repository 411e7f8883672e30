// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siplens/siplens/internal/logging"
	"github.com/siplens/siplens/internal/metrics"
	"github.com/siplens/siplens/internal/models"
)

// comparison direction for classify: MOS is lower-is-worse, the network
// metrics are higher-is-worse.
type direction int

const (
	belowIsBad direction = iota
	aboveIsBad
)

// classify compares a metric value against its warning and critical cutoffs.
// Critical takes precedence; at most one severity is returned per metric.
func classify(value, warning, critical float64, dir direction) (models.AlertSeverity, float64, bool) {
	if dir == belowIsBad {
		if value < critical {
			return models.SeverityCritical, critical, true
		}
		if value < warning {
			return models.SeverityWarning, warning, true
		}
		return "", 0, false
	}
	if value > critical {
		return models.SeverityCritical, critical, true
	}
	if value > warning {
		return models.SeverityWarning, warning, true
	}
	return "", 0, false
}

type metricCheck struct {
	alertType models.AlertType
	value     float64
	warning   float64
	critical  float64
	dir       direction
	message   func(sev models.AlertSeverity, value, cutoff float64) string
}

// evaluate checks a scored sample against the tenant's thresholds and
// records one alert per crossed metric. Repeated alerts for a sustained
// degradation are intentional; outbound notification rate limiting happens
// downstream. Alert writes are best-effort and never fail the sample.
func (e *Engine) evaluate(ctx context.Context, sample *models.QualitySample) []models.QualityAlert {
	thresholds, err := e.Thresholds(ctx, sample.TenantID)
	if err != nil {
		logging.Warn().Err(err).
			Str("tenant_id", sample.TenantID).
			Msg("Threshold lookup failed, using defaults for evaluation")
		def := models.DefaultThresholds()
		def.TenantID = sample.TenantID
		thresholds = &def
	}

	checks := []metricCheck{
		{
			alertType: models.AlertLowMOS,
			value:     sample.MOS,
			warning:   thresholds.MOSWarning,
			critical:  thresholds.MOSCritical,
			dir:       belowIsBad,
			message: func(sev models.AlertSeverity, value, cutoff float64) string {
				return fmt.Sprintf("%s: MOS score is %.1f (below %.1f)", severityPrefix(sev), value, cutoff)
			},
		},
		{
			alertType: models.AlertHighJitter,
			value:     sample.AvgJitter(),
			warning:   thresholds.JitterWarning,
			critical:  thresholds.JitterCritical,
			dir:       aboveIsBad,
			message: func(sev models.AlertSeverity, value, cutoff float64) string {
				return fmt.Sprintf("%s: jitter is %.1fms (above %.1fms)", severityPrefix(sev), value, cutoff)
			},
		},
		{
			alertType: models.AlertHighPacketLoss,
			value:     sample.AvgPacketLoss(),
			warning:   thresholds.PacketLossWarning,
			critical:  thresholds.PacketLossCritical,
			dir:       aboveIsBad,
			message: func(sev models.AlertSeverity, value, cutoff float64) string {
				return fmt.Sprintf("%s: packet loss is %.1f%% (above %.1f%%)", severityPrefix(sev), value, cutoff)
			},
		},
		{
			alertType: models.AlertHighLatency,
			value:     sample.Latency(),
			warning:   thresholds.LatencyWarning,
			critical:  thresholds.LatencyCritical,
			dir:       aboveIsBad,
			message: func(sev models.AlertSeverity, value, cutoff float64) string {
				return fmt.Sprintf("%s: latency is %.1fms (above %.1fms)", severityPrefix(sev), value, cutoff)
			},
		},
	}

	var alerts []models.QualityAlert
	for _, check := range checks {
		sev, cutoff, crossed := classify(check.value, check.warning, check.critical, check.dir)
		if !crossed {
			continue
		}

		alert := models.QualityAlert{
			ID:          uuid.New(),
			CallID:      sample.CallID,
			TenantID:    sample.TenantID,
			Type:        check.alertType,
			Severity:    sev,
			MetricValue: check.value,
			Threshold:   cutoff,
			Message:     check.message(sev, check.value, cutoff),
			CreatedAt:   time.Now().UTC(),
		}

		if err := e.store.InsertAlert(ctx, &alert); err != nil {
			logging.Error().Err(err).
				Str("tenant_id", sample.TenantID).
				Str("call_id", sample.CallID).
				Str("alert_type", string(check.alertType)).
				Msg("Failed to record alert")
			continue
		}
		metrics.AlertsRaised.WithLabelValues(string(check.alertType), string(sev)).Inc()
		alerts = append(alerts, alert)

		e.publish(ctx, alert)
	}
	return alerts
}

func (e *Engine) publish(ctx context.Context, alert models.QualityAlert) {
	if e.publisher == nil {
		return
	}
	event := models.AlertEvent{
		CallID:      alert.CallID,
		TenantID:    alert.TenantID,
		AlertType:   alert.Type,
		Severity:    alert.Severity,
		Message:     alert.Message,
		MetricValue: alert.MetricValue,
		Threshold:   alert.Threshold,
		CreatedAt:   alert.CreatedAt,
	}
	if err := e.publisher.PublishAlert(ctx, event); err != nil {
		logging.Warn().Err(err).
			Str("call_id", alert.CallID).
			Msg("Failed to publish alert event")
		return
	}
	metrics.AlertsPublished.Inc()
}

func severityPrefix(sev models.AlertSeverity) string {
	if sev == models.SeverityCritical {
		return "Critical"
	}
	return "Warning"
}
