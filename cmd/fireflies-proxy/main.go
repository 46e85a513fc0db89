// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the Fireflies proxy: it correlates Fireflies webhooks with
// locally scheduled meetings and serves their transcripts over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/service"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/utils"
)

func main() {
	loadDotEnv()
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}()

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	// Initialize services
	serviceConfig := service.ServiceConfig{
		RequireWebhookSignature: env.Fireflies.RequireWebhookSignature,
	}
	firefliesClient := setupFirefliesClient(env.Fireflies)
	messageBuilder := messaging.NewMessageBuilder(natsConn)
	webhookValidator := webhook.NewFirefliesWebhookValidator(env.Fireflies.WebhookSecret)

	transcriptBuilder := service.NewTranscriptBuilder(
		repos.Transcript,
		repos.Meeting,
		messageBuilder,
		serviceConfig,
	)
	authService := service.NewAuthService(repos.User, firefliesClient, serviceConfig)
	meetingService := service.NewMeetingService(
		repos.Meeting,
		repos.User,
		firefliesClient,
		messageBuilder,
		serviceConfig,
	)
	transcriptService := service.NewTranscriptService(
		repos.Meeting,
		repos.User,
		firefliesClient,
		transcriptBuilder,
	)
	webhookService := service.NewFirefliesWebhookService(
		webhookValidator,
		service.NewCorrelationResolver(repos.Meeting),
		firefliesClient,
		transcriptBuilder,
		repos.Meeting,
		messageBuilder,
		serviceConfig,
	)

	// Initialize handlers
	api := &handlers.API{
		Auth:        handlers.NewAuthHandler(authService),
		Meetings:    handlers.NewMeetingHandler(meetingService),
		Transcripts: handlers.NewTranscriptHandler(transcriptService),
		Webhooks:    handlers.NewFirefliesWebhookHandler(webhookService),
	}

	httpServer := setupHTTPServer(flags, api, &gracefulCloseWG)

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, &gracefulCloseWG, cancel)
}
