// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("tenant-a", 42)

	v, ok := c.Get("tenant-a")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGetMissing(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestExpiration(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("short", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestDeleteInvalidates(t *testing.T) {
	c := New(time.Minute)

	c.Set("tenant-a", "thresholds")
	c.Delete("tenant-a")

	_, ok := c.Get("tenant-a")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.False(t, okA)
	assert.False(t, okB)
	assert.Zero(t, c.GetStats().TotalKeys)
}

func TestHitRate(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", 1)
	c.Get("key")
	c.Get("key")
	c.Get("missing")

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 66.66, c.HitRate(), 0.1)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("tenant-%d", n%10)
			c.Set(key, n)
			c.Get(key)
			if n%3 == 0 {
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()
}
