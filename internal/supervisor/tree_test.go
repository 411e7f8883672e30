// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingService runs until its context is cancelled, counting starts.
type blockingService struct {
	name   string
	starts atomic.Int64
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return s.name }

func TestTreeRunsServicesInAllLayers(t *testing.T) {
	tree := NewTree(DefaultTreeConfig())

	background := &blockingService{name: "background-svc"}
	messaging := &blockingService{name: "messaging-svc"}
	api := &blockingService{name: "api-svc"}

	tree.AddBackgroundService(background)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool {
		return background.starts.Load() == 1 &&
			messaging.starts.Load() == 1 &&
			api.starts.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}

func TestTreeConfigZeroValuesGetDefaults(t *testing.T) {
	// A zero config must still produce a working tree.
	tree := NewTree(TreeConfig{})
	svc := &blockingService{name: "svc"}
	tree.AddAPIService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool {
		return svc.starts.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-errCh
}
