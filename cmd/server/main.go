// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

// Package main is the entry point for the SipLens server.
//
// SipLens monitors VoIP call quality: it scores RTCP-derived telemetry with
// the ITU-T G.107 E-Model, raises per-tenant threshold alerts, summarizes
// finished calls and maintains daily carrier/agent quality rankings.
//
// Startup order:
//
//  1. Configuration: YAML file plus SIPLENS_* environment overrides (Koanf v2)
//  2. Database: DuckDB storage for samples, summaries, alerts and scores
//  3. Alert bus: in-process Watermill Pub/Sub feeding the notification dispatcher
//  4. Supervisor tree: rankings scheduler, retention janitor, dispatcher, HTTP API
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP server
// drains in-flight requests, background services stop at the next context
// check and the database closes last.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/siplens/siplens/internal/api"
	"github.com/siplens/siplens/internal/config"
	"github.com/siplens/siplens/internal/database"
	"github.com/siplens/siplens/internal/logging"
	"github.com/siplens/siplens/internal/monitor"
	"github.com/siplens/siplens/internal/notify"
	"github.com/siplens/siplens/internal/rankings"
	"github.com/siplens/siplens/internal/retention"
	"github.com/siplens/siplens/internal/supervisor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("rankings_enabled", cfg.Rankings.Enabled).
		Bool("retention_enabled", cfg.Retention.Enabled).
		Bool("notify_enabled", cfg.Notify.Enabled).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	bus := notify.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing alert bus")
		}
	}()

	engine := monitor.NewEngine(db, bus, cfg.Engine.ThresholdCacheTTL)
	scorer := rankings.NewScorer(db, cfg.Rankings.WindowDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if cfg.Rankings.Enabled {
		tree.AddBackgroundService(rankings.NewService(scorer, cfg.Rankings.Interval))
		logging.Info().Dur("interval", cfg.Rankings.Interval).Msg("Rankings scheduler added")
	}
	if cfg.Retention.Enabled {
		tree.AddBackgroundService(retention.NewJanitor(db, cfg.Retention.SampleRetentionDays, cfg.Retention.SweepInterval))
		logging.Info().
			Int("retention_days", cfg.Retention.SampleRetentionDays).
			Msg("Retention janitor added")
	}
	if cfg.Notify.Enabled {
		dispatcher := notify.NewDispatcher(bus, notify.LogNotifier{}, engine, notify.DispatcherConfig{
			RatePerMinute:   cfg.Notify.RatePerMinute,
			Burst:           cfg.Notify.Burst,
			BreakerFailures: cfg.Notify.BreakerFailures,
			BreakerTimeout:  cfg.Notify.BreakerTimeout,
		})
		tree.AddMessagingService(dispatcher)
		logging.Info().Msg("Notification dispatcher added")
	}

	handler := api.NewHandler(engine, scorer, db, &cfg.API)
	tree.AddAPIService(api.NewService(handler.Router(), &cfg.Server))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("SipLens stopped")
}
