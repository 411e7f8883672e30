// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	// CORS must be global so OPTIONS preflight is handled before routing.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", tenantHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Operational endpoints stay outside the tenant guard.
	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(h.cfg.RateLimitPerMinute, time.Minute))
		r.Use(prometheusMetrics)
		r.Use(requireTenant)

		r.Route("/calls/{callID}", func(r chi.Router) {
			r.Post("/samples", h.recordSample)
			r.Get("/metrics", h.callMetrics)
			r.Get("/summary", h.callSummary)
			r.Post("/summarize", h.summarizeCall)
			r.Get("/alerts", h.callAlerts)
			r.Post("/alerts/acknowledge", h.acknowledgeCallAlerts)
			r.Get("/diagnostics", h.callDiagnostics)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.listAlerts)
			r.Post("/{alertID}/acknowledge", h.acknowledgeAlert)
		})

		r.Route("/thresholds", func(r chi.Router) {
			r.Get("/", h.getThresholds)
			r.Put("/", h.updateThresholds)
		})

		r.Route("/rankings", func(r chi.Router) {
			r.Get("/carriers", h.carrierRankings)
			r.Get("/agents", h.agentRankings)
			r.Post("/rebuild", h.rebuildRankings)
		})
	})

	return r
}
