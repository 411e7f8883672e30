// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package models defines the core data types shared across the SipLens engine:
// quality samples, call summaries, alerts, tenant thresholds, carrier/agent
// scores, and the API response envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// CallDirection indicates which leg of the call a sample was taken from.
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

// TelemetrySnapshot is one raw RTCP-derived measurement delivered by the
// telephony collaborator for an active call leg. Missing numeric fields
// decode as zero; an unknown codec falls back to the G.711 baseline profile
// during scoring rather than failing the sample.
type TelemetrySnapshot struct {
	Codec           string  `json:"codec"`
	JitterIn        float64 `json:"jitter_in" validate:"gte=0"`
	JitterOut       float64 `json:"jitter_out" validate:"gte=0"`
	PacketLossIn    float64 `json:"packet_loss_in" validate:"gte=0,lte=100"`
	PacketLossOut   float64 `json:"packet_loss_out" validate:"gte=0,lte=100"`
	RTT             float64 `json:"rtt" validate:"gte=0"`
	PacketsSent     int64   `json:"packets_sent" validate:"gte=0"`
	PacketsReceived int64   `json:"packets_received" validate:"gte=0"`
	PacketsLost     int64   `json:"packets_lost" validate:"gte=0"`
}

// CallContext carries the optional routing context attached to a sample.
type CallContext struct {
	CarrierID string        `json:"carrier_id,omitempty"`
	AgentID   string        `json:"agent_id,omitempty"`
	Direction CallDirection `json:"direction,omitempty"`
}

// QualitySample is one scored telemetry snapshot. Samples are append-only:
// the derived fields (MOS, R-factor, label) are a pure function of the raw
// telemetry and are never recomputed after tenant threshold changes.
type QualitySample struct {
	ID       uuid.UUID `json:"id"`
	CallID   string    `json:"call_id"`
	TenantID string    `json:"tenant_id"`
	// Timestamp is when the snapshot was taken (arrival order within a call).
	Timestamp time.Time `json:"timestamp"`

	Codec           string  `json:"codec"`
	JitterIn        float64 `json:"jitter_in"`
	JitterOut       float64 `json:"jitter_out"`
	PacketLossIn    float64 `json:"packet_loss_in"`
	PacketLossOut   float64 `json:"packet_loss_out"`
	RTT             float64 `json:"rtt"`
	PacketsSent     int64   `json:"packets_sent"`
	PacketsReceived int64   `json:"packets_received"`
	PacketsLost     int64   `json:"packets_lost"`

	// Derived perceptual quality (ITU-T G.107 E-Model).
	MOS          float64 `json:"mos"`
	RFactor      float64 `json:"r_factor"`
	QualityLabel string  `json:"quality_label"`

	CarrierID string        `json:"carrier_id,omitempty"`
	AgentID   string        `json:"agent_id,omitempty"`
	Direction CallDirection `json:"direction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AvgJitter returns the averaged one-way jitter for this sample.
func (s *QualitySample) AvgJitter() float64 {
	return (s.JitterIn + s.JitterOut) / 2
}

// AvgPacketLoss returns the averaged one-way packet loss for this sample.
func (s *QualitySample) AvgPacketLoss() float64 {
	return (s.PacketLossIn + s.PacketLossOut) / 2
}

// Latency returns the estimated one-way latency (half the round-trip time).
func (s *QualitySample) Latency() float64 {
	return s.RTT / 2
}
