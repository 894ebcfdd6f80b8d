// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	config := &Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             10,
	}

	limiter := New(config)
	if limiter == nil {
		t.Fatal("Expected limiter to be created")
	}

	if !limiter.enabled {
		t.Error("Expected limiter to be enabled")
	}

	stats := limiter.Stats()
	if stats["enabled"] != true {
		t.Error("Expected enabled to be true in stats")
	}

	limiter.Stop()
}

func TestAllow(t *testing.T) {
	config := &Config{
		Enabled:           true,
		RequestsPerMinute: 60, // 1 per second
		Burst:             5,
	}

	limiter := New(config)
	defer limiter.Stop()

	callerToken := "test-caller"

	for i := 0; i < 5; i++ {
		if !limiter.Allow(callerToken) {
			t.Errorf("Request %d should be allowed (burst)", i+1)
		}
	}

	if limiter.Allow(callerToken) {
		t.Error("Request should be denied after burst exhausted")
	}

	time.Sleep(1 * time.Second)
	if !limiter.Allow(callerToken) {
		t.Error("Request should be allowed after waiting")
	}
}

func TestDisabledLimiter(t *testing.T) {
	config := &Config{
		Enabled:           false,
		RequestsPerMinute: 1,
	}

	limiter := New(config)

	callerToken := "test-caller"

	for i := 0; i < 100; i++ {
		if !limiter.Allow(callerToken) {
			t.Error("Disabled limiter should allow all requests")
		}
	}
}

func TestPerCallerLimiting(t *testing.T) {
	config := &Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		Burst:             1,
	}

	limiter := New(config)
	defer limiter.Stop()

	caller1 := "caller-1"
	caller2 := "caller-2"

	if !limiter.Allow(caller1) {
		t.Error("First request for caller1 should be allowed")
	}
	if limiter.Allow(caller1) {
		t.Error("Second request for caller1 should be denied")
	}

	if !limiter.Allow(caller2) {
		t.Error("First request for caller2 should be allowed")
	}
}

func TestCleanup(t *testing.T) {
	config := &Config{
		Enabled:           true,
		RequestsPerMinute: 60,
		CleanupInterval:   100 * time.Millisecond,
		MaxIdle:           200 * time.Millisecond,
	}

	limiter := New(config)
	defer limiter.Stop()

	limiter.Allow("test-caller")

	limiter.mu.RLock()
	if len(limiter.limiters) != 1 {
		t.Errorf("Expected 1 limiter, got %d", len(limiter.limiters))
	}
	limiter.mu.RUnlock()

	time.Sleep(400 * time.Millisecond)

	limiter.mu.RLock()
	if len(limiter.limiters) != 0 {
		t.Errorf("Expected 0 limiters after cleanup, got %d", len(limiter.limiters))
	}
	limiter.mu.RUnlock()
}

func TestWait(t *testing.T) {
	config := &Config{
		Enabled:           true,
		RequestsPerMinute: 6000,
		Burst:             1,
	}

	limiter := New(config)
	defer limiter.Stop()

	if err := limiter.Wait(context.Background(), "waiting-caller"); err != nil {
		t.Errorf("expected Wait to succeed, got %v", err)
	}
}

func TestWaitRespectsCancellation(t *testing.T) {
	config := &Config{
		Enabled:           true,
		RequestsPerMinute: 1,
		Burst:             1,
	}

	limiter := New(config)
	defer limiter.Stop()

	limiter.Allow("throttled-caller")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "throttled-caller"); err == nil {
		t.Error("expected Wait to fail once the context deadline is exceeded")
	}
}

func TestStats(t *testing.T) {
	config := &Config{
		Enabled:           true,
		RequestsPerMinute: 120,
		Burst:             10,
	}

	limiter := New(config)
	defer limiter.Stop()

	limiter.Allow("caller-1")
	limiter.Allow("caller-2")

	stats := limiter.Stats()

	if stats["enabled"] != true {
		t.Error("Expected enabled to be true")
	}

	if stats["active_callers"] != 2 {
		t.Errorf("Expected 2 active callers, got %v", stats["active_callers"])
	}

	if stats["rate_per_min"] != 120.0 {
		t.Errorf("Expected rate_per_min 120, got %v", stats["rate_per_min"])
	}

	if stats["burst"] != 10 {
		t.Errorf("Expected burst 10, got %v", stats["burst"])
	}
}
