// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/siplens/siplens/internal/config"
	"github.com/siplens/siplens/internal/logging"
)

// Service runs the HTTP server under a supervision tree. It shuts down
// gracefully when the supervisor context is cancelled.
type Service struct {
	handler http.Handler
	cfg     *config.ServerConfig
}

// NewService wraps the router in a supervised HTTP server.
func NewService(handler http.Handler, cfg *config.ServerConfig) *Service {
	return &Service{handler: handler, cfg: cfg}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("HTTP server shutdown failed")
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}
		logging.Info().Msg("HTTP server stopped")
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

func (s *Service) String() string { return "http-server" }
