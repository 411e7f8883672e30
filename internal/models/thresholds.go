// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package models

import "time"

// AlertThresholds holds one tenant's warning/critical cutoffs plus
// notification preferences. MOS alerts fire below the cutoff; jitter, packet
// loss and latency alerts fire above it. Tenants without a row use
// DefaultThresholds.
type AlertThresholds struct {
	TenantID string `json:"tenant_id"`

	MOSWarning  float64 `json:"mos_warning" validate:"gte=1,lte=5"`
	MOSCritical float64 `json:"mos_critical" validate:"gte=1,lte=5"`

	JitterWarning  float64 `json:"jitter_warning" validate:"gte=0"`
	JitterCritical float64 `json:"jitter_critical" validate:"gte=0"`

	PacketLossWarning  float64 `json:"packet_loss_warning" validate:"gte=0,lte=100"`
	PacketLossCritical float64 `json:"packet_loss_critical" validate:"gte=0,lte=100"`

	LatencyWarning  float64 `json:"latency_warning" validate:"gte=0"`
	LatencyCritical float64 `json:"latency_critical" validate:"gte=0"`

	// NotifyChannels lists enabled notification channels (email, sms, webhook).
	NotifyChannels []string `json:"notify_channels"`
	// NotifyRecipients lists channel-specific recipient addresses.
	NotifyRecipients []string `json:"notify_recipients"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ThresholdUpdate is a partial threshold update. Nil fields retain the
// tenant's previously configured values.
type ThresholdUpdate struct {
	MOSWarning  *float64 `json:"mos_warning,omitempty" validate:"omitempty,gte=1,lte=5"`
	MOSCritical *float64 `json:"mos_critical,omitempty" validate:"omitempty,gte=1,lte=5"`

	JitterWarning  *float64 `json:"jitter_warning,omitempty" validate:"omitempty,gte=0"`
	JitterCritical *float64 `json:"jitter_critical,omitempty" validate:"omitempty,gte=0"`

	PacketLossWarning  *float64 `json:"packet_loss_warning,omitempty" validate:"omitempty,gte=0,lte=100"`
	PacketLossCritical *float64 `json:"packet_loss_critical,omitempty" validate:"omitempty,gte=0,lte=100"`

	LatencyWarning  *float64 `json:"latency_warning,omitempty" validate:"omitempty,gte=0"`
	LatencyCritical *float64 `json:"latency_critical,omitempty" validate:"omitempty,gte=0"`

	NotifyChannels   []string `json:"notify_channels,omitempty"`
	NotifyRecipients []string `json:"notify_recipients,omitempty"`
}

// DefaultThresholds returns the system-wide fallback cutoffs used when a
// tenant has not configured its own. The network cutoffs match the fixed
// diagnostic heuristics so an alerting tenant and a diagnosed call mostly
// agree on what "bad" means out of the box; only the MOS critical cutoff
// differs (alerting 2.5, diagnostics 3.0).
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		MOSWarning:         3.5,
		MOSCritical:        2.5,
		JitterWarning:      30,
		JitterCritical:     50,
		PacketLossWarning:  2.0,
		PacketLossCritical: 5.0,
		LatencyWarning:     150,
		LatencyCritical:    200,
		NotifyChannels:     []string{"email"},
		NotifyRecipients:   nil,
	}
}

// Apply merges a partial update into the thresholds, returning the result.
// Unset fields keep their previous values.
func (t AlertThresholds) Apply(u ThresholdUpdate) AlertThresholds {
	if u.MOSWarning != nil {
		t.MOSWarning = *u.MOSWarning
	}
	if u.MOSCritical != nil {
		t.MOSCritical = *u.MOSCritical
	}
	if u.JitterWarning != nil {
		t.JitterWarning = *u.JitterWarning
	}
	if u.JitterCritical != nil {
		t.JitterCritical = *u.JitterCritical
	}
	if u.PacketLossWarning != nil {
		t.PacketLossWarning = *u.PacketLossWarning
	}
	if u.PacketLossCritical != nil {
		t.PacketLossCritical = *u.PacketLossCritical
	}
	if u.LatencyWarning != nil {
		t.LatencyWarning = *u.LatencyWarning
	}
	if u.LatencyCritical != nil {
		t.LatencyCritical = *u.LatencyCritical
	}
	if u.NotifyChannels != nil {
		t.NotifyChannels = u.NotifyChannels
	}
	if u.NotifyRecipients != nil {
		t.NotifyRecipients = u.NotifyRecipients
	}
	return t
}
