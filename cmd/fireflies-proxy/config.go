// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/fireflies/api"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

// flags are the command line flags for the proxy.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the proxy.
type environment struct {
	Port      string
	NatsURL   string
	Fireflies firefliesConfig
}

// firefliesConfig holds the Fireflies API and webhook settings.
type firefliesConfig struct {
	APIKey                  string
	APIURL                  string
	WebhookSecret           string
	RequireWebhookSignature bool
	CacheTTL                time.Duration
	RateLimitBackoff        time.Duration
	Timeout                 time.Duration
}

// loadDotEnv loads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.With(logging.ErrKey, err).Warn("failed to load .env file")
	}
}

// parseFlags parses command line flags for the proxy
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the proxy
func parseEnv() environment {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	return environment{
		Port:      port,
		NatsURL:   natsURL,
		Fireflies: parseFirefliesConfig(),
	}
}

// parseFirefliesConfig parses the Fireflies settings. A missing API key is
// not fatal: the webhook receiver and stored transcripts keep working and
// provider calls answer 503 until a key is configured.
func parseFirefliesConfig() firefliesConfig {
	apiKey := os.Getenv("FIREFLIES_API_KEY")
	if !api.ValidAPIKey(apiKey) {
		slog.Warn("FIREFLIES_API_KEY is not set, provider calls will fail until it is configured")
	}

	webhookSecret := os.Getenv("FIREFLIES_WEBHOOK_SECRET")
	if strings.TrimSpace(webhookSecret) == "" {
		slog.Warn("FIREFLIES_WEBHOOK_SECRET is not set, webhook signatures will not be verified")
	}

	return firefliesConfig{
		APIKey:                  apiKey,
		APIURL:                  os.Getenv("FIREFLIES_API_URL"),
		WebhookSecret:           webhookSecret,
		RequireWebhookSignature: envBool("FIREFLIES_WEBHOOK_REQUIRE_SIGNATURE"),
		CacheTTL:                envDuration("FIREFLIES_CACHE_TTL", api.DefaultCacheTTL),
		RateLimitBackoff:        envDuration("FIREFLIES_RATE_LIMIT_BACKOFF", api.DefaultRateLimitBackoff),
		Timeout:                 envDuration("FIREFLIES_TIMEOUT", api.DefaultClientTimeout),
	}
}

func envBool(key string) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.With("key", key, "value", raw).Warn("invalid boolean environment variable, using false")
		return false
	}
	return v
}

// envDuration accepts Go duration strings ("90s", "5m").
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.With("key", key, "value", raw).Warn("invalid duration environment variable, using default")
		return fallback
	}
	return d
}
