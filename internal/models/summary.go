// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package models

import (
	"time"

	"github.com/google/uuid"
)

// CallQualitySummary is the one-row-per-call aggregate written when a call
// ends. Re-running the summarizer after late-arriving samples recomputes the
// row (idempotent upsert). SampleCount always equals the number of
// QualitySample rows for the call at computation time.
type CallQualitySummary struct {
	ID       uuid.UUID `json:"id"`
	CallID   string    `json:"call_id"`
	TenantID string    `json:"tenant_id"`

	AvgMOS float64 `json:"avg_mos"`
	MinMOS float64 `json:"min_mos"`
	MaxMOS float64 `json:"max_mos"`

	AvgJitter float64 `json:"avg_jitter"`
	MaxJitter float64 `json:"max_jitter"`

	AvgPacketLoss float64 `json:"avg_packet_loss"`
	MaxPacketLoss float64 `json:"max_packet_loss"`

	AvgLatency float64 `json:"avg_latency"`
	MaxLatency float64 `json:"max_latency"`

	SampleCount int64 `json:"sample_count"`
	AlertCount  int64 `json:"alert_count"`

	// DominantCodec is the codec used by the most samples of the call.
	DominantCodec string `json:"dominant_codec"`

	CarrierID string        `json:"carrier_id,omitempty"`
	AgentID   string        `json:"agent_id,omitempty"`
	Direction CallDirection `json:"direction,omitempty"`

	// FinalQuality is the MOS label mapping re-applied to AvgMOS.
	FinalQuality string `json:"final_quality"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
