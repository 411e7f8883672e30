// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package models

// Issue type identifiers produced by the diagnostics analyzer.
const (
	IssueLowMOS             = "low_mos"
	IssueHighJitter         = "high_jitter"
	IssueHighPacketLoss     = "high_packet_loss"
	IssueHighLatency        = "high_latency"
	IssueQualityDegradation = "quality_degradation"
	IssueOneWayAudio        = "one_way_audio"
)

// DiagnosticIssue is one explainable finding from a completed call's sample
// series. Each heuristic produces at most one issue.
type DiagnosticIssue struct {
	Type           string        `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Message        string        `json:"message"`
	Recommendation string        `json:"recommendation"`
}

// DiagnosticsReport is the result of analyzing a call. An empty issue list
// with a positive summary is a valid, expected outcome; a call with no
// samples yields an empty report with a "no data" summary, never an error.
type DiagnosticsReport struct {
	CallID      string            `json:"call_id"`
	TenantID    string            `json:"tenant_id"`
	SampleCount int               `json:"sample_count"`
	Issues      []DiagnosticIssue `json:"issues"`
	Summary     string            `json:"summary"`
}
