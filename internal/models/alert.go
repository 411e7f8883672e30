// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType identifies which metric crossed a threshold.
type AlertType string

const (
	AlertLowMOS         AlertType = "low_mos"
	AlertHighJitter     AlertType = "high_jitter"
	AlertHighPacketLoss AlertType = "high_packet_loss"
	AlertHighLatency    AlertType = "high_latency"
)

// AlertSeverity is the severity of an alert or diagnostic issue.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// QualityAlert is one threshold crossing recorded for a sample. Alerts are an
// audit trail: they are never auto-deleted, only acknowledged by an operator.
type QualityAlert struct {
	ID       uuid.UUID     `json:"id"`
	CallID   string        `json:"call_id"`
	TenantID string        `json:"tenant_id"`
	Type     AlertType     `json:"alert_type"`
	Severity AlertSeverity `json:"severity"`

	// MetricValue is the sample value that triggered the alert, Threshold the
	// cutoff it crossed.
	MetricValue float64 `json:"metric_value"`
	Threshold   float64 `json:"threshold"`

	Message string `json:"message"`

	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AlertEvent is the payload forwarded to the notification collaborator.
// Delivery and retry are the transport's responsibility.
type AlertEvent struct {
	CallID      string        `json:"call_id"`
	TenantID    string        `json:"tenant_id"`
	AlertType   AlertType     `json:"alert_type"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	MetricValue float64       `json:"metric_value"`
	Threshold   float64       `json:"threshold"`
	CreatedAt   time.Time     `json:"created_at"`
}
