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

	"github.com/siplens/siplens/internal/emodel"
	"github.com/siplens/siplens/internal/models"
)

// Summarize aggregates a call's samples into one summary row and upserts it.
// Re-running after late-arriving samples recomputes the row. A call with no
// samples returns (nil, nil): an empty call has no summary.
func (e *Engine) Summarize(ctx context.Context, tenantID, callID string) (*models.CallQualitySummary, error) {
	samples, err := e.store.SamplesForCall(ctx, tenantID, callID)
	if err != nil {
		return nil, fmt.Errorf("loading samples for call %s: %w", callID, err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	alertCount, err := e.store.AlertCountForCall(ctx, tenantID, callID)
	if err != nil {
		return nil, fmt.Errorf("counting alerts for call %s: %w", callID, err)
	}

	var (
		sumMOS                 float64
		sumJitter, maxJitter   float64
		sumLoss, maxLoss       float64
		sumLatency, maxLatency float64
		codecCounts            = make(map[string]int)
		dominantCodec          string
		carrierID, agentID     string
		callDirection          models.CallDirection
	)
	minMOS, maxMOS := samples[0].MOS, samples[0].MOS
	for _, s := range samples {
		sumMOS += s.MOS
		minMOS = min(minMOS, s.MOS)
		maxMOS = max(maxMOS, s.MOS)

		jitter := s.AvgJitter()
		sumJitter += jitter
		maxJitter = max(maxJitter, jitter)

		loss := s.AvgPacketLoss()
		sumLoss += loss
		maxLoss = max(maxLoss, loss)

		latency := s.Latency()
		sumLatency += latency
		maxLatency = max(maxLatency, latency)

		codecCounts[s.Codec]++
		if codecCounts[s.Codec] > codecCounts[dominantCodec] {
			dominantCodec = s.Codec
		}

		// Context fields rarely change mid-call; keep the latest non-empty.
		if s.CarrierID != "" {
			carrierID = s.CarrierID
		}
		if s.AgentID != "" {
			agentID = s.AgentID
		}
		if s.Direction != "" {
			callDirection = s.Direction
		}
	}

	n := float64(len(samples))
	avgMOS := sumMOS / n
	now := time.Now().UTC()

	summary := &models.CallQualitySummary{
		ID:            uuid.New(),
		CallID:        callID,
		TenantID:      tenantID,
		AvgMOS:        avgMOS,
		MinMOS:        minMOS,
		MaxMOS:        maxMOS,
		AvgJitter:     sumJitter / n,
		MaxJitter:     maxJitter,
		AvgPacketLoss: sumLoss / n,
		MaxPacketLoss: maxLoss,
		AvgLatency:    sumLatency / n,
		MaxLatency:    maxLatency,
		SampleCount:   int64(len(samples)),
		AlertCount:    alertCount,
		DominantCodec: dominantCodec,
		CarrierID:     carrierID,
		AgentID:       agentID,
		Direction:     callDirection,
		FinalQuality:  emodel.LabelForMOS(avgMOS),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.store.UpsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("storing summary for call %s: %w", callID, err)
	}
	return summary, nil
}
