// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/fireflies/api"
)

func TestParseEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "NATS_URL", "FIREFLIES_API_KEY", "FIREFLIES_API_URL", "FIREFLIES_WEBHOOK_SECRET",
		"FIREFLIES_WEBHOOK_REQUIRE_SIGNATURE", "FIREFLIES_CACHE_TTL", "FIREFLIES_RATE_LIMIT_BACKOFF", "FIREFLIES_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	env := parseEnv()

	assert.Equal(t, "8080", env.Port)
	assert.Equal(t, "nats://localhost:4222", env.NatsURL)
	assert.Equal(t, firefliesConfig{
		CacheTTL:         api.DefaultCacheTTL,
		RateLimitBackoff: api.DefaultRateLimitBackoff,
		Timeout:          api.DefaultClientTimeout,
	}, env.Fireflies)
}

func TestParseEnv_Fireflies(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("FIREFLIES_API_KEY", "key-123")
	t.Setenv("FIREFLIES_API_URL", "http://localhost:9999/graphql")
	t.Setenv("FIREFLIES_WEBHOOK_SECRET", "s3cret")
	t.Setenv("FIREFLIES_WEBHOOK_REQUIRE_SIGNATURE", "true")
	t.Setenv("FIREFLIES_CACHE_TTL", "90s")
	t.Setenv("FIREFLIES_RATE_LIMIT_BACKOFF", "10m")
	t.Setenv("FIREFLIES_TIMEOUT", "5s")

	env := parseEnv()

	assert.Equal(t, "9090", env.Port)
	assert.Equal(t, "nats://nats:4222", env.NatsURL)
	assert.Equal(t, firefliesConfig{
		APIKey:                  "key-123",
		APIURL:                  "http://localhost:9999/graphql",
		WebhookSecret:           "s3cret",
		RequireWebhookSignature: true,
		CacheTTL:                90 * time.Second,
		RateLimitBackoff:        10 * time.Minute,
		Timeout:                 5 * time.Second,
	}, env.Fireflies)
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", time.Minute},
		{"2m", 2 * time.Minute},
		{"soon", time.Minute},
		{"-5s", time.Minute},
		{"0s", time.Minute},
	}

	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, envDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestEnvBool(t *testing.T) {
	for value, expected := range map[string]bool{"": false, "true": true, "1": true, "false": false, "maybe": false} {
		t.Run("value "+value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", value)
			assert.Equal(t, expected, envBool("TEST_BOOL"))
		})
	}
}
