// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siplens/siplens/internal/config"
	"github.com/siplens/siplens/internal/database"
	"github.com/siplens/siplens/internal/models"
	"github.com/siplens/siplens/internal/monitor"
	"github.com/siplens/siplens/internal/rankings"
)

const testTenant = "tenant-1"

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
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

	cfg := config.Defaults()
	engine := monitor.NewEngine(db, nil, 30*time.Second)
	scorer := rankings.NewScorer(db, cfg.Rankings.WindowDays)

	handler := NewHandler(engine, scorer, db, &cfg.API)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body interface{}) (*http.Response, *envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", testTenant)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, &env
}

func cleanSampleBody() map[string]interface{} {
	return map[string]interface{}{
		"telemetry": map[string]interface{}{
			"codec":            "PCMU",
			"jitter_in":        5.0,
			"jitter_out":       5.0,
			"packet_loss_in":   0.0,
			"packet_loss_out":  0.0,
			"rtt":              40.0,
			"packets_sent":     int64(1000),
			"packets_received": int64(1000),
		},
		"context": map[string]interface{}{
			"carrier_id": "carrier-a",
			"agent_id":   "agent-1",
			"direction":  "inbound",
		},
	}
}

func degradedSampleBody() map[string]interface{} {
	body := cleanSampleBody()
	body["telemetry"] = map[string]interface{}{
		"codec":           "PCMU",
		"jitter_in":       60.0,
		"jitter_out":      60.0,
		"packet_loss_in":  8.0,
		"packet_loss_out": 8.0,
		"rtt":             500.0,
	}
	return body
}

func TestRecordSampleEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-1/samples", cleanSampleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	var result recordSampleResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.Sample)
	assert.Equal(t, "call-1", result.Sample.CallID)
	assert.Equal(t, testTenant, result.Sample.TenantID)
	assert.InDelta(t, 4.4, result.Sample.MOS, 0.1)
	assert.Equal(t, "Excellent", result.Sample.QualityLabel)
	assert.Empty(t, result.Alerts)
}

func TestRecordSampleRequiresTenant(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(cleanSampleBody())
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/calls/call-1/samples", bytes.NewReader(body))
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "MISSING_TENANT", env.Error.Code)
}

func TestRecordSampleRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	// Malformed JSON.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/calls/call-1/samples",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", testTenant)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Out-of-range telemetry.
	body := cleanSampleBody()
	body["telemetry"] = map[string]interface{}{
		"codec":          "PCMU",
		"packet_loss_in": 150.0,
	}
	resp2, env := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-1/samples", body)
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestCallSummaryLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodGet, "/api/v1/calls/call-9/summary", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-9/samples", cleanSampleBody())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, env := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-9/summarize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary models.CallQualitySummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, int64(2), summary.SampleCount)
	assert.Equal(t, "Excellent", summary.FinalQuality)

	resp, env = doRequest(t, srv, http.MethodGet, "/api/v1/calls/call-9/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "call-9", summary.CallID)

	// Summarizing a call with no samples is a 404, not an empty summary.
	resp, _ = doRequest(t, srv, http.MethodPost, "/api/v1/calls/missing/summarize", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallMetricsOrdering(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-m/samples", cleanSampleBody())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, env := doRequest(t, srv, http.MethodGet, "/api/v1/calls/call-m/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var samples []models.QualitySample
	require.NoError(t, json.Unmarshal(env.Data, &samples))
	require.Len(t, samples, 3)
	for i := 1; i < len(samples); i++ {
		assert.False(t, samples[i].CreatedAt.Before(samples[i-1].CreatedAt))
	}
}

func TestAlertListingAndAcknowledge(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-bad/samples", degradedSampleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/v1/alerts?severity=critical", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page models.AlertsPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Alerts, 4)
	assert.Equal(t, int64(4), page.Pagination.TotalCount)

	// Bad severity values are rejected rather than silently ignored.
	resp, env = doRequest(t, srv, http.MethodGet, "/api/v1/alerts?severity=bogus", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	alertID := page.Alerts[0].ID
	resp, env = doRequest(t, srv, http.MethodPost,
		fmt.Sprintf("/api/v1/alerts/%s/acknowledge", alertID),
		map[string]string{"user_id": "ops@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var acked models.QualityAlert
	require.NoError(t, json.Unmarshal(env.Data, &acked))
	assert.True(t, acked.Acknowledged)
	assert.Equal(t, "ops@example.com", acked.AcknowledgedBy)

	// The acknowledged alert drops out of the unacknowledged list.
	resp, env = doRequest(t, srv, http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Alerts, 3)
}

func TestAcknowledgeAlertErrors(t *testing.T) {
	srv := newTestServer(t)

	// Not a UUID.
	resp, env := doRequest(t, srv, http.MethodPost, "/api/v1/alerts/not-a-uuid/acknowledge",
		map[string]string{"user_id": "ops"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	// Unknown alert.
	resp, env = doRequest(t, srv, http.MethodPost,
		"/api/v1/alerts/6b1b64e4-77f8-4b27-a88c-0a0bd1b9a2d5/acknowledge",
		map[string]string{"user_id": "ops"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	// Missing user_id.
	resp, env = doRequest(t, srv, http.MethodPost,
		"/api/v1/alerts/6b1b64e4-77f8-4b27-a88c-0a0bd1b9a2d5/acknowledge",
		map[string]string{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestAcknowledgeAllCallAlerts(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-bad/samples", degradedSampleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := doRequest(t, srv, http.MethodPost, "/api/v1/calls/call-bad/alerts/acknowledge",
		map[string]string{"user_id": "ops"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result acknowledgeCallResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, int64(4), result.Acknowledged)
}

func TestThresholdsGetAndUpdate(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/v1/thresholds", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var thresholds models.AlertThresholds
	require.NoError(t, json.Unmarshal(env.Data, &thresholds))
	assert.InDelta(t, 3.5, thresholds.MOSWarning, 0.001)

	resp, env = doRequest(t, srv, http.MethodPut, "/api/v1/thresholds",
		map[string]interface{}{"mos_warning": 3.0, "notify_channels": []string{"webhook"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &thresholds))
	assert.InDelta(t, 3.0, thresholds.MOSWarning, 0.001)
	assert.Equal(t, []string{"webhook"}, thresholds.NotifyChannels)
	// Unset fields keep their defaults.
	assert.InDelta(t, 2.5, thresholds.MOSCritical, 0.001)

	resp, env = doRequest(t, srv, http.MethodPut, "/api/v1/thresholds",
		map[string]interface{}{"mos_warning": 9.0})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestRankingsRebuildAndQuery(t *testing.T) {
	srv := newTestServer(t)

	for _, call := range []string{"call-a", "call-b"} {
		resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/calls/"+call+"/samples", cleanSampleBody())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, _ := doRequest(t, srv, http.MethodPost, "/api/v1/rankings/rebuild", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/v1/rankings/carriers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var carriers []models.CarrierQualityScore
	require.NoError(t, json.Unmarshal(env.Data, &carriers))
	require.Len(t, carriers, 1)
	assert.Equal(t, "carrier-a", carriers[0].CarrierID)
	assert.Equal(t, 1, carriers[0].Rank)
	assert.Greater(t, carriers[0].QualityScore, 80.0)

	resp, env = doRequest(t, srv, http.MethodGet, "/api/v1/rankings/agents?agent_id=agent-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var agents []models.AgentQualityScore
	require.NoError(t, json.Unmarshal(env.Data, &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "agent-1", agents[0].AgentID)

	// Filter for an unknown agent returns an empty list, not an error.
	resp, env = doRequest(t, srv, http.MethodGet, "/api/v1/rankings/agents?agent_id=nobody", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &agents))
	assert.Empty(t, agents)
}

func TestDiagnosticsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/v1/calls/silent/diagnostics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report models.DiagnosticsReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "no data available for this call", report.Summary)
	assert.Empty(t, report.Issues)

	resp, _ = doRequest(t, srv, http.MethodPost, "/api/v1/calls/noisy/samples", degradedSampleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = doRequest(t, srv, http.MethodGet, "/api/v1/calls/noisy/diagnostics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.NotEmpty(t, report.Issues)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
