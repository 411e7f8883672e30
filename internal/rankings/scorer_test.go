// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package rankings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siplens/siplens/internal/config"
	"github.com/siplens/siplens/internal/database"
	"github.com/siplens/siplens/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   2,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func insertSample(t *testing.T, db *database.DB, callID, carrierID, agentID string, mos float64, at time.Time) {
	t.Helper()
	require.NoError(t, db.InsertSample(context.Background(), &models.QualitySample{
		ID:            uuid.New(),
		CallID:        callID,
		TenantID:      "tenant-1",
		Timestamp:     at,
		Codec:         "PCMU",
		JitterIn:      20,
		JitterOut:     20,
		PacketLossIn:  2,
		PacketLossOut: 2,
		RTT:           200,
		MOS:           mos,
		RFactor:       80,
		QualityLabel:  "Good",
		CarrierID:     carrierID,
		AgentID:       agentID,
		CreatedAt:     at,
	}))
}

func TestCompositeScore(t *testing.T) {
	// avg MOS 4.0 -> 80*0.5, loss 2% -> 80*0.2, jitter 20ms -> 60*0.15,
	// latency 100ms -> 50*0.15.
	got := CompositeScore(4.0, 2.0, 20.0, 100.0)
	assert.InDelta(t, 72.5, got, 0.001)

	// A flawless call scores 0.5*90 + 0.2*100 + 0.15*100 + 0.15*100.
	assert.InDelta(t, 95.0, CompositeScore(4.5, 0, 0, 0), 0.001)

	// Sub-scores clamp at zero rather than going negative.
	assert.InDelta(t, 0.0, CompositeScore(0, 50, 100, 400), 0.001)
	assert.InDelta(t, 10.0, CompositeScore(1.0, 50, 100, 400), 0.001)
}

func TestUpdateCarrierScoresIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	scorer := NewScorer(db, 30)
	ctx := context.Background()
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	insertSample(t, db, "call-1", "carrier-a", "agent-1", 4.4, day.Add(1*time.Hour))
	insertSample(t, db, "call-1", "carrier-a", "agent-1", 4.2, day.Add(1*time.Hour+5*time.Second))
	insertSample(t, db, "call-2", "carrier-a", "agent-2", 3.0, day.Add(2*time.Hour))
	insertSample(t, db, "call-3", "carrier-b", "agent-1", 4.1, day.Add(3*time.Hour))

	first, err := scorer.UpdateCarrierScores(ctx, "tenant-1", day)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "carrier-a", first[0].CarrierID)
	assert.Equal(t, int64(2), first[0].TotalCalls)
	assert.InDelta(t, CompositeScore(first[0].AvgMOS, first[0].AvgPacketLoss, first[0].AvgJitter, first[0].AvgLatency),
		first[0].QualityScore, 0.001)

	second, err := scorer.UpdateCarrierScores(ctx, "tenant-1", day)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.InDelta(t, first[0].QualityScore, second[0].QualityScore, 0.001)
	assert.Equal(t, first[0].TotalCalls, second[0].TotalCalls)

	// One stored row per (carrier, day) after both runs.
	ranked, err := db.CarrierRankings(ctx, "tenant-1", day, day, 10)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestUpdateAgentScores(t *testing.T) {
	db := setupTestDB(t)
	scorer := NewScorer(db, 30)
	ctx := context.Background()
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	insertSample(t, db, "call-1", "carrier-a", "agent-1", 4.4, day.Add(1*time.Hour))
	insertSample(t, db, "call-2", "carrier-a", "agent-2", 2.5, day.Add(2*time.Hour))

	scores, err := scorer.UpdateAgentScores(ctx, "tenant-1", day)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "agent-1", scores[0].AgentID)
	assert.Greater(t, scores[0].QualityScore, scores[1].QualityScore)
	assert.InDelta(t, 100, scores[0].QualityPercentage, 0.001)
	assert.InDelta(t, 0, scores[1].QualityPercentage, 0.001)
}

func TestRunAllScoresEveryTenantDay(t *testing.T) {
	db := setupTestDB(t)
	scorer := NewScorer(db, 30)
	ctx := context.Background()
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	insertSample(t, db, "call-1", "carrier-a", "agent-1", 4.0, day.Add(time.Hour))
	require.NoError(t, scorer.RunAll(ctx, day))

	ranked, err := db.CarrierRankings(ctx, "tenant-1", day, day, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
}

// failingScoreStore makes one carrier's upsert fail to exercise per-entity
// isolation within a batch run.
type failingScoreStore struct {
	Store
	failCarrier string
}

func (f *failingScoreStore) UpsertCarrierScore(ctx context.Context, s *models.CarrierQualityScore) error {
	if s.CarrierID == f.failCarrier {
		return errors.New("simulated storage failure")
	}
	return f.Store.UpsertCarrierScore(ctx, s)
}

func TestCarrierScoringIsolatesEntityFailures(t *testing.T) {
	db := setupTestDB(t)
	store := &failingScoreStore{Store: db, failCarrier: "carrier-a"}
	scorer := NewScorer(store, 30)
	ctx := context.Background()
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	insertSample(t, db, "call-1", "carrier-a", "agent-1", 4.0, day.Add(time.Hour))
	insertSample(t, db, "call-2", "carrier-b", "agent-1", 4.0, day.Add(2*time.Hour))

	scores, err := scorer.UpdateCarrierScores(ctx, "tenant-1", day)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "carrier-b", scores[0].CarrierID)
}
