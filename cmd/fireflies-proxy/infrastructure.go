// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/fireflies/api"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

const (
	// gracefulShutdownSeconds bounds the HTTP shutdown and the NATS drain.
	gracefulShutdownSeconds = 25
	natsMaxReconnects       = -1
	natsReconnectWait       = 2 * time.Second
)

// repositories are the KV backed stores of the proxy.
type repositories struct {
	Meeting    *store.NatsMeetingRepository
	Transcript *store.NatsTranscriptRepository
	User       *store.NatsUserRepository
}

// setupFirefliesClient builds the shared Fireflies API client.
func setupFirefliesClient(cfg firefliesConfig) *api.Client {
	return api.NewClient(api.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.APIURL,
		Timeout:          cfg.Timeout,
		CacheTTL:         cfg.CacheTTL,
		RateLimitBackoff: cfg.RateLimitBackoff,
	})
}

// setupNATS connects to NATS. The connection's closed handler releases
// gracefulCloseWG and, when the close was not requested, signals done.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name(constants.ServiceName),
		nats.DrainTimeout(gracefulShutdownSeconds*time.Second),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).Info("NATS connection established")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.With(logging.ErrKey, err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.With("nats_url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject).Error("async NATS error")
				return
			}
			slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			defer gracefulCloseWG.Done()
			if ctx.Err() != nil {
				// Expected: shutdown already in progress.
				return
			}
			slog.Error("NATS connection closed unexpectedly", logging.PriorityCritical())
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return natsConn, nil
}

// getKeyValueStores opens the KV buckets, creating any that do not exist yet.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	open := func(bucket string) (jetstream.KeyValue, error) {
		kv, err := js.KeyValue(ctx, bucket)
		if errors.Is(err, jetstream.ErrBucketNotFound) {
			slog.With("bucket", bucket).Info("creating missing KV bucket")
			kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket, History: 1})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
		}
		return kv, nil
	}

	meetings, err := open(store.KVStoreNameMeetings)
	if err != nil {
		return nil, err
	}
	transcripts, err := open(store.KVStoreNameTranscripts)
	if err != nil {
		return nil, err
	}
	users, err := open(store.KVStoreNameUsers)
	if err != nil {
		return nil, err
	}

	return &repositories{
		Meeting:    store.NewNatsMeetingRepository(meetings),
		Transcript: store.NewNatsTranscriptRepository(transcripts),
		User:       store.NewNatsUserRepository(users),
	}, nil
}
