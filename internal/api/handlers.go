// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package api exposes the SipLens HTTP surface: sample ingestion, call
// summaries and diagnostics, alert management, tenant thresholds and
// carrier/agent quality rankings. Every data endpoint is tenant-scoped via
// the X-Tenant-ID header and wrapped in the standard response envelope.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/siplens/siplens/internal/config"
	"github.com/siplens/siplens/internal/database"
	"github.com/siplens/siplens/internal/models"
	"github.com/siplens/siplens/internal/monitor"
	"github.com/siplens/siplens/internal/rankings"
	"github.com/siplens/siplens/internal/validation"
)

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the collaborators shared by all endpoints.
type Handler struct {
	engine *monitor.Engine
	scorer *rankings.Scorer
	db     Pinger
	cfg    *config.APIConfig
}

// NewHandler creates the API handler set.
func NewHandler(engine *monitor.Engine, scorer *rankings.Scorer, db Pinger, cfg *config.APIConfig) *Handler {
	return &Handler{
		engine: engine,
		scorer: scorer,
		db:     db,
		cfg:    cfg,
	}
}

type recordSampleRequest struct {
	Telemetry models.TelemetrySnapshot `json:"telemetry"`
	Context   models.CallContext       `json:"context"`
}

type recordSampleResponse struct {
	Sample *models.QualitySample `json:"sample"`
	Alerts []models.QualityAlert `json:"alerts"`
}

func (h *Handler) recordSample(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := chi.URLParam(r, "callID")

	var req recordSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"request body must be valid JSON", err)
		return
	}

	sample, alerts, err := h.engine.Record(r.Context(), tenantFromContext(r.Context()), callID, req.Telemetry, req.Context)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if alerts == nil {
		alerts = []models.QualityAlert{}
	}

	respondJSON(w, http.StatusCreated, &recordSampleResponse{
		Sample: sample,
		Alerts: alerts,
	}, start)
}

func (h *Handler) callMetrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := chi.URLParam(r, "callID")

	samples, err := h.engine.CallMetrics(r.Context(), tenantFromContext(r.Context()), callID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED",
			"failed to load call metrics", err)
		return
	}
	if samples == nil {
		samples = []models.QualitySample{}
	}
	respondJSON(w, http.StatusOK, samples, start)
}

func (h *Handler) callSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := chi.URLParam(r, "callID")

	summary, err := h.engine.CallSummary(r.Context(), tenantFromContext(r.Context()), callID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED",
			"failed to load call summary", err)
		return
	}
	if summary == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"no summary exists for this call", nil)
		return
	}
	respondJSON(w, http.StatusOK, summary, start)
}

func (h *Handler) summarizeCall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := chi.URLParam(r, "callID")

	summary, err := h.engine.Summarize(r.Context(), tenantFromContext(r.Context()), callID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SUMMARIZE_FAILED",
			"failed to summarize call", err)
		return
	}
	if summary == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"no samples exist for this call", nil)
		return
	}
	respondJSON(w, http.StatusOK, summary, start)
}

func (h *Handler) callAlerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := chi.URLParam(r, "callID")

	alerts, err := h.engine.CallAlerts(r.Context(), tenantFromContext(r.Context()), callID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED",
			"failed to load call alerts", err)
		return
	}
	if alerts == nil {
		alerts = []models.QualityAlert{}
	}
	respondJSON(w, http.StatusOK, alerts, start)
}

func (h *Handler) callDiagnostics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := chi.URLParam(r, "callID")

	report, err := h.engine.Diagnose(r.Context(), tenantFromContext(r.Context()), callID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DIAGNOSE_FAILED",
			"failed to diagnose call", err)
		return
	}
	respondJSON(w, http.StatusOK, report, start)
}

type acknowledgeRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type acknowledgeCallResponse struct {
	Acknowledged int64 `json:"acknowledged"`
}

func (h *Handler) acknowledgeCallAlerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := chi.URLParam(r, "callID")

	req, ok := decodeAcknowledge(w, r)
	if !ok {
		return
	}

	count, err := h.engine.AcknowledgeAllForCall(r.Context(), tenantFromContext(r.Context()), callID, req.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ACKNOWLEDGE_FAILED",
			"failed to acknowledge call alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, &acknowledgeCallResponse{Acknowledged: count}, start)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	page := queryInt(r, "page", 1, 1<<30)
	limit := queryInt(r, "limit", h.cfg.DefaultPageSize, h.cfg.MaxPageSize)

	severity := models.AlertSeverity(r.URL.Query().Get("severity"))
	if severity != "" && severity != models.SeverityWarning && severity != models.SeverityCritical {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"severity must be warning or critical", nil)
		return
	}

	alertsPage, err := h.engine.UnacknowledgedAlerts(r.Context(), tenantFromContext(r.Context()), severity, page, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED",
			"failed to load alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, alertsPage, start)
}

func (h *Handler) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"alert ID must be a valid UUID", nil)
		return
	}

	req, ok := decodeAcknowledge(w, r)
	if !ok {
		return
	}

	alert, err := h.engine.AcknowledgeAlert(r.Context(), tenantFromContext(r.Context()), alertID, req.UserID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "alert not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ACKNOWLEDGE_FAILED",
			"failed to acknowledge alert", err)
		return
	}
	respondJSON(w, http.StatusOK, alert, start)
}

func (h *Handler) getThresholds(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	thresholds, err := h.engine.Thresholds(r.Context(), tenantFromContext(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED",
			"failed to load thresholds", err)
		return
	}
	respondJSON(w, http.StatusOK, thresholds, start)
}

func (h *Handler) updateThresholds(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var update models.ThresholdUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"request body must be valid JSON", err)
		return
	}

	thresholds, err := h.engine.UpdateThresholds(r.Context(), tenantFromContext(r.Context()), update)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, thresholds, start)
}

func (h *Handler) carrierRankings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	days := queryInt(r, "days", 0, 365)
	limit := queryInt(r, "limit", h.cfg.DefaultPageSize, h.cfg.MaxPageSize)

	scores, err := h.scorer.CarrierRankings(r.Context(), tenantFromContext(r.Context()), days, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED",
			"failed to load carrier rankings", err)
		return
	}
	if scores == nil {
		scores = []models.CarrierQualityScore{}
	}
	respondJSON(w, http.StatusOK, scores, start)
}

func (h *Handler) agentRankings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	days := queryInt(r, "days", 0, 365)
	limit := queryInt(r, "limit", h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	agentID := r.URL.Query().Get("agent_id")

	scores, err := h.scorer.AgentQualityReport(r.Context(), tenantFromContext(r.Context()), agentID, days, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED",
			"failed to load agent quality report", err)
		return
	}
	if scores == nil {
		scores = []models.AgentQualityScore{}
	}
	respondJSON(w, http.StatusOK, scores, start)
}

type rebuildResponse struct {
	Date string `json:"date"`
}

// rebuildRankings recomputes today's daily scores on demand, without waiting
// for the scheduler.
func (h *Handler) rebuildRankings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if err := h.scorer.RunAll(r.Context(), date); err != nil {
		respondError(w, http.StatusInternalServerError, "REBUILD_FAILED",
			"failed to rebuild rankings", err)
		return
	}
	respondJSON(w, http.StatusOK, &rebuildResponse{Date: date.Format("2006-01-02")}, start)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "UNHEALTHY",
			"database is unreachable", err)
		return
	}
	respondJSON(w, http.StatusOK, &healthResponse{Status: "ok", Database: "ok"}, start)
}

func decodeAcknowledge(w http.ResponseWriter, r *http.Request) (*acknowledgeRequest, bool) {
	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"request body must be valid JSON", err)
		return nil, false
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return nil, false
	}
	return &req, true
}

// respondEngineError maps engine failures onto HTTP: validation problems are
// the caller's fault, anything else is a server error.
func respondEngineError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"request could not be processed", err)
}
