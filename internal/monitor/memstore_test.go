// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siplens/siplens/internal/database"
	"github.com/siplens/siplens/internal/models"
)

// memStore is an in-memory Store used by engine tests. It preserves sample
// insertion order per call, which is all the ordering the engine relies on.
type memStore struct {
	mu         sync.Mutex
	samples    []models.QualitySample
	summaries  map[string]models.CallQualitySummary
	alerts     []models.QualityAlert
	thresholds map[string]models.AlertThresholds

	insertSampleErr error
	thresholdsErr   error
}

func newMemStore() *memStore {
	return &memStore{
		summaries:  make(map[string]models.CallQualitySummary),
		thresholds: make(map[string]models.AlertThresholds),
	}
}

func callKey(tenantID, callID string) string { return tenantID + "/" + callID }

func (m *memStore) InsertSample(_ context.Context, s *models.QualitySample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertSampleErr != nil {
		return m.insertSampleErr
	}
	m.samples = append(m.samples, *s)
	return nil
}

func (m *memStore) SamplesForCall(_ context.Context, tenantID, callID string) ([]models.QualitySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QualitySample
	for _, s := range m.samples {
		if s.TenantID == tenantID && s.CallID == callID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) UpsertSummary(_ context.Context, s *models.CallQualitySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[callKey(s.TenantID, s.CallID)] = *s
	return nil
}

func (m *memStore) SummaryForCall(_ context.Context, tenantID, callID string) (*models.CallQualitySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[callKey(tenantID, callID)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) InsertAlert(_ context.Context, a *models.QualityAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *memStore) AlertByID(_ context.Context, tenantID string, alertID uuid.UUID) (*models.QualityAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].TenantID == tenantID && m.alerts[i].ID == alertID {
			a := m.alerts[i]
			return &a, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) AlertsForCall(_ context.Context, tenantID, callID string) ([]models.QualityAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QualityAlert
	for _, a := range m.alerts {
		if a.TenantID == tenantID && a.CallID == callID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) AlertCountForCall(ctx context.Context, tenantID, callID string) (int64, error) {
	alerts, err := m.AlertsForCall(ctx, tenantID, callID)
	return int64(len(alerts)), err
}

func (m *memStore) UnacknowledgedAlerts(_ context.Context, tenantID string, severity models.AlertSeverity, limit, offset int) ([]models.QualityAlert, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matching []models.QualityAlert
	for _, a := range m.alerts {
		if a.TenantID != tenantID || a.Acknowledged {
			continue
		}
		if severity != "" && a.Severity != severity {
			continue
		}
		matching = append(matching, a)
	}
	total := int64(len(matching))
	if offset >= len(matching) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], total, nil
}

func (m *memStore) AcknowledgeAlert(_ context.Context, tenantID string, alertID uuid.UUID, by string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.TenantID != tenantID || a.ID != alertID {
			continue
		}
		if !a.Acknowledged {
			a.Acknowledged = true
			a.AcknowledgedBy = by
			t := at
			a.AcknowledgedAt = &t
		}
		return nil
	}
	return database.ErrNotFound
}

func (m *memStore) AcknowledgeAlertsForCall(_ context.Context, tenantID, callID, by string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.TenantID != tenantID || a.CallID != callID || a.Acknowledged {
			continue
		}
		a.Acknowledged = true
		a.AcknowledgedBy = by
		t := at
		a.AcknowledgedAt = &t
		n++
	}
	return n, nil
}

func (m *memStore) ThresholdsForTenant(_ context.Context, tenantID string) (*models.AlertThresholds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.thresholdsErr != nil {
		return nil, m.thresholdsErr
	}
	t, ok := m.thresholds[tenantID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) UpsertThresholds(_ context.Context, t *models.AlertThresholds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[t.TenantID] = *t
	return nil
}

// capturePublisher records published alert events.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.AlertEvent
	err    error
}

func (p *capturePublisher) PublishAlert(_ context.Context, event models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) published() []models.AlertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.AlertEvent(nil), p.events...)
}
