// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package models

import (
	"time"

	"github.com/google/uuid"
)

// CarrierQualityScore is the daily per-carrier aggregate written by the
// rankings batch job. The (date, tenant, carrier) row is upserted: reruns for
// the same day overwrite prior values with equivalent results. Rows for fully
// elapsed days are effectively immutable.
type CarrierQualityScore struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CarrierID string    `json:"carrier_id"`
	// ScoreDate is the UTC calendar day the aggregates cover.
	ScoreDate time.Time `json:"score_date"`

	TotalCalls int64 `json:"total_calls"`

	AvgMOS    float64 `json:"avg_mos"`
	MedianMOS float64 `json:"median_mos"`
	MinMOS    float64 `json:"min_mos"`
	MaxMOS    float64 `json:"max_mos"`

	// Call counts by per-call average MOS band.
	ExcellentCalls int64 `json:"excellent_calls"`
	GoodCalls      int64 `json:"good_calls"`
	FairCalls      int64 `json:"fair_calls"`
	PoorCalls      int64 `json:"poor_calls"`

	// QualityPercentage is (excellent+good)/total*100.
	QualityPercentage float64 `json:"quality_percentage"`

	AvgJitter     float64 `json:"avg_jitter"`
	AvgPacketLoss float64 `json:"avg_packet_loss"`
	AvgLatency    float64 `json:"avg_latency"`

	// QualityScore is the weighted composite in [0, 100].
	QualityScore float64 `json:"quality_score"`

	// Rank is populated by ranking queries only (1 = best), zero otherwise.
	Rank int `json:"rank,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentQualityScore is the per-agent equivalent of CarrierQualityScore.
type AgentQualityScore struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenant_id"`
	AgentID  string    `json:"agent_id"`
	// ScoreDate is the UTC calendar day the aggregates cover.
	ScoreDate time.Time `json:"score_date"`

	TotalCalls int64 `json:"total_calls"`

	AvgMOS    float64 `json:"avg_mos"`
	MedianMOS float64 `json:"median_mos"`
	MinMOS    float64 `json:"min_mos"`
	MaxMOS    float64 `json:"max_mos"`

	ExcellentCalls int64 `json:"excellent_calls"`
	GoodCalls      int64 `json:"good_calls"`
	FairCalls      int64 `json:"fair_calls"`
	PoorCalls      int64 `json:"poor_calls"`

	QualityPercentage float64 `json:"quality_percentage"`

	AvgJitter     float64 `json:"avg_jitter"`
	AvgPacketLoss float64 `json:"avg_packet_loss"`
	AvgLatency    float64 `json:"avg_latency"`

	QualityScore float64 `json:"quality_score"`

	Rank int `json:"rank,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
