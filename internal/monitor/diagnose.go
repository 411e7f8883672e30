// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package monitor

import (
	"context"
	"fmt"

	"github.com/siplens/siplens/internal/models"
)

// Diagnostic heuristic cutoffs. The network cutoffs match the system default
// alert thresholds; the MOS critical cutoff is stricter (3.0 vs the 2.5
// alerting default) since a diagnosed call should flag quality users already
// notice. All of them are fixed: tenant threshold changes do not move them.
const (
	diagMOSWarning      = 3.5
	diagMOSCritical     = 3.0
	diagJitterWarning   = 30.0
	diagJitterCritical  = 50.0
	diagLossWarning     = 2.0
	diagLossCritical    = 5.0
	diagLatencyWarning  = 150.0
	diagLatencyCritical = 200.0

	// Mid-call degradation: second-half avg MOS this far below the first
	// half's flags a downward trend. Needs at least 4 samples.
	degradationDrop       = 0.5
	degradationMinSamples = 4

	// One-way audio: one direction losing most packets while the other is
	// clean points at a routing or NAT problem rather than congestion.
	oneWayHighLoss = 50.0
	oneWayLowLoss  = 5.0
)

// Diagnose re-reads a call's full sample series and explains why quality was
// poor. Each heuristic is independent and produces at most one issue. A call
// with no samples yields an empty report, never an error.
func (e *Engine) Diagnose(ctx context.Context, tenantID, callID string) (*models.DiagnosticsReport, error) {
	samples, err := e.store.SamplesForCall(ctx, tenantID, callID)
	if err != nil {
		return nil, fmt.Errorf("loading samples for call %s: %w", callID, err)
	}

	report := &models.DiagnosticsReport{
		CallID:   callID,
		TenantID: tenantID,
		Issues:   []models.DiagnosticIssue{},
	}
	if len(samples) == 0 {
		report.Summary = "no data available for this call"
		return report, nil
	}
	report.SampleCount = len(samples)

	var sumMOS, sumJitter, sumLoss, sumLatency float64
	for _, s := range samples {
		sumMOS += s.MOS
		sumJitter += s.AvgJitter()
		sumLoss += s.AvgPacketLoss()
		sumLatency += s.Latency()
	}
	n := float64(len(samples))
	avgMOS := sumMOS / n
	avgJitter := sumJitter / n
	avgLoss := sumLoss / n
	avgLatency := sumLatency / n

	if sev, _, bad := classify(avgMOS, diagMOSWarning, diagMOSCritical, belowIsBad); bad {
		report.Issues = append(report.Issues, models.DiagnosticIssue{
			Type:           models.IssueLowMOS,
			Severity:       sev,
			Message:        fmt.Sprintf("average MOS %.2f indicates %s call quality", avgMOS, qualityAdjective(sev)),
			Recommendation: "Check overall network health between the endpoints; review codec selection and available bandwidth",
		})
	}

	if sev, _, bad := classify(avgJitter, diagJitterWarning, diagJitterCritical, aboveIsBad); bad {
		report.Issues = append(report.Issues, models.DiagnosticIssue{
			Type:           models.IssueHighJitter,
			Severity:       sev,
			Message:        fmt.Sprintf("average jitter %.1fms exceeds %.0fms", avgJitter, pickCutoff(sev, diagJitterWarning, diagJitterCritical)),
			Recommendation: "Enable QoS/DSCP marking for voice traffic and increase jitter buffer size",
		})
	}

	if sev, _, bad := classify(avgLoss, diagLossWarning, diagLossCritical, aboveIsBad); bad {
		report.Issues = append(report.Issues, models.DiagnosticIssue{
			Type:           models.IssueHighPacketLoss,
			Severity:       sev,
			Message:        fmt.Sprintf("average packet loss %.1f%% exceeds %.1f%%", avgLoss, pickCutoff(sev, diagLossWarning, diagLossCritical)),
			Recommendation: "Inspect links for congestion or faulty equipment; consider a loss-robust codec such as Opus",
		})
	}

	if sev, _, bad := classify(avgLatency, diagLatencyWarning, diagLatencyCritical, aboveIsBad); bad {
		report.Issues = append(report.Issues, models.DiagnosticIssue{
			Type:           models.IssueHighLatency,
			Severity:       sev,
			Message:        fmt.Sprintf("average one-way latency %.0fms exceeds %.0fms", avgLatency, pickCutoff(sev, diagLatencyWarning, diagLatencyCritical)),
			Recommendation: "Review routing between the endpoints; prefer a geographically closer media relay",
		})
	}

	if issue, ok := detectDegradation(samples); ok {
		report.Issues = append(report.Issues, issue)
	}
	if issue, ok := detectOneWayAudio(samples); ok {
		report.Issues = append(report.Issues, issue)
	}

	switch len(report.Issues) {
	case 0:
		report.Summary = "no quality issues detected"
	case 1:
		report.Summary = "1 quality issue detected"
	default:
		report.Summary = fmt.Sprintf("%d quality issues detected", len(report.Issues))
	}
	return report, nil
}

// detectDegradation compares the first and second half of the series. A drop
// of more than degradationDrop in average MOS flags a mid-call downward
// trend even when the overall average still looks acceptable.
func detectDegradation(samples []models.QualitySample) (models.DiagnosticIssue, bool) {
	if len(samples) < degradationMinSamples {
		return models.DiagnosticIssue{}, false
	}
	half := len(samples) / 2
	firstAvg := avgMOS(samples[:half])
	secondAvg := avgMOS(samples[half:])
	if firstAvg-secondAvg <= degradationDrop {
		return models.DiagnosticIssue{}, false
	}
	return models.DiagnosticIssue{
		Type:           models.IssueQualityDegradation,
		Severity:       models.SeverityWarning,
		Message:        fmt.Sprintf("call quality degraded from MOS %.2f to %.2f over the call", firstAvg, secondAvg),
		Recommendation: "Look for mid-call events: network path changes, competing traffic, or endpoint CPU exhaustion",
	}, true
}

// detectOneWayAudio flags any sample with heavy loss in one direction while
// the other stays clean. Always critical, independent of other thresholds.
func detectOneWayAudio(samples []models.QualitySample) (models.DiagnosticIssue, bool) {
	for _, s := range samples {
		inBad := s.PacketLossIn > oneWayHighLoss && s.PacketLossOut < oneWayLowLoss
		outBad := s.PacketLossOut > oneWayHighLoss && s.PacketLossIn < oneWayLowLoss
		if !inBad && !outBad {
			continue
		}
		direction := "inbound"
		if outBad {
			direction = "outbound"
		}
		return models.DiagnosticIssue{
			Type:           models.IssueOneWayAudio,
			Severity:       models.SeverityCritical,
			Message:        fmt.Sprintf("asymmetric packet loss on the %s leg suggests one-way audio", direction),
			Recommendation: "Check NAT traversal, firewall rules and SDP negotiation for the failing direction",
		}, true
	}
	return models.DiagnosticIssue{}, false
}

func avgMOS(samples []models.QualitySample) float64 {
	var sum float64
	for _, s := range samples {
		sum += s.MOS
	}
	return sum / float64(len(samples))
}

func qualityAdjective(sev models.AlertSeverity) string {
	if sev == models.SeverityCritical {
		return "very poor"
	}
	return "degraded"
}

func pickCutoff(sev models.AlertSeverity, warning, critical float64) float64 {
	if sev == models.SeverityCritical {
		return critical
	}
	return warning
}
