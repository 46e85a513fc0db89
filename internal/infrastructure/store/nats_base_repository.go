// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/concurrent"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameMeetings    = "fireflies-meetings"
	KVStoreNameTranscripts = "fireflies-transcripts"
	KVStoreNameUsers       = "fireflies-users"
)

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/store"

// listWorkers bounds the concurrent gets issued while listing a bucket.
const listWorkers = 8

// INatsKeyValue is the subset of jetstream.KeyValue the repositories use.
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(context.Context, string, []byte) (uint64, error)
	Update(context.Context, string, []byte, uint64) (uint64, error)
	Delete(context.Context, string, ...jetstream.KVDeleteOpt) error
}

// NatsBaseRepository provides the NATS KV operations shared by all repositories.
type NatsBaseRepository[T any] struct {
	kvStore    INatsKeyValue
	entityName string // used in error messages and span attributes
	keyBuilder *KeyBuilder
}

// NewNatsBaseRepository creates a new base repository for NATS KV operations
func NewNatsBaseRepository[T any](kvStore INatsKeyValue, entityName string) *NatsBaseRepository[T] {
	return &NatsBaseRepository[T]{
		kvStore:    kvStore,
		entityName: entityName,
		keyBuilder: NewKeyBuilder(""),
	}
}

// IsReady checks if the repository is ready for use
func (r *NatsBaseRepository[T]) IsReady() bool {
	return r.kvStore != nil
}

func (r *NatsBaseRepository[T]) startSpan(ctx context.Context, operation, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", "nats"),
		attribute.String("db.operation", operation),
		attribute.String("db.nats.entity", r.entityName),
	)
	if key != "" {
		attrs = append(attrs, attribute.String("db.nats.key", key))
	}
	return otel.Tracer(tracerName).Start(ctx, "nats.kv."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// finish records err on span and returns it unchanged.
func finish(span trace.Span, err error) error {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	span.RecordError(err)
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeNotFound:
		span.SetStatus(codes.Error, "not found")
	case domain.ErrorTypeConflict:
		span.SetStatus(codes.Error, "conflict")
	default:
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *NatsBaseRepository[T]) unavailable() error {
	return domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
}

// isRevisionConflict reports whether err is the jetstream optimistic
// concurrency failure.
func isRevisionConflict(err error) bool {
	return errors.Is(err, jetstream.ErrKeyExists) || strings.Contains(err.Error(), "wrong last sequence")
}

// GetRaw retrieves a raw entry from the NATS KV store
func (r *NatsBaseRepository[T]) GetRaw(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	ctx, span := r.startSpan(ctx, "get", key)
	defer span.End()

	if !r.IsReady() {
		return nil, finish(span, r.unavailable())
	}

	entry, err := r.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, finish(span, domain.NewNotFoundError(
				fmt.Sprintf("%s with key '%s' not found", r.entityName, key), err))
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error getting %s from NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		return nil, finish(span, domain.NewInternalError(
			fmt.Sprintf("failed to retrieve %s from store", r.entityName), err))
	}

	return entry, finish(span, nil)
}

// Get retrieves and unmarshals an entity from the NATS KV store
func (r *NatsBaseRepository[T]) Get(ctx context.Context, key string) (*T, error) {
	entity, _, err := r.GetWithRevision(ctx, key)
	return entity, err
}

// GetWithRevision retrieves an entity with its revision from the NATS KV store
func (r *NatsBaseRepository[T]) GetWithRevision(ctx context.Context, key string) (*T, uint64, error) {
	entry, err := r.GetRaw(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	var entity T
	if err := json.Unmarshal(entry.Value(), &entity); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error unmarshaling %s", r.entityName),
			logging.ErrKey, err, "key", key)
		return nil, 0, domain.NewInternalError(
			fmt.Sprintf("failed to unmarshal %s data", r.entityName), err)
	}

	return &entity, entry.Revision(), nil
}

func (r *NatsBaseRepository[T]) marshal(ctx context.Context, entity *T) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error marshaling %s", r.entityName), logging.ErrKey, err)
		return nil, domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err)
	}
	return data, nil
}

// CreateIfAbsent writes an entity only when key has never been written. The
// check and the write are a single atomic KV operation, so concurrent callers
// see exactly one success and Conflict errors for the rest.
func (r *NatsBaseRepository[T]) CreateIfAbsent(ctx context.Context, key string, entity *T) error {
	ctx, span := r.startSpan(ctx, "create", key)
	defer span.End()

	if !r.IsReady() {
		return finish(span, r.unavailable())
	}

	data, err := r.marshal(ctx, entity)
	if err != nil {
		return finish(span, err)
	}

	// revision 0 means "the subject must not have a last sequence yet"
	if _, err := r.kvStore.Update(ctx, key, data, 0); err != nil {
		if isRevisionConflict(err) {
			return finish(span, domain.NewConflictError(
				fmt.Sprintf("%s already exists", r.entityName), err))
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error creating %s in NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		return finish(span, domain.NewInternalError(
			fmt.Sprintf("failed to create %s in store", r.entityName), err))
	}

	return finish(span, nil)
}

// Update updates an existing entity with optimistic concurrency control
func (r *NatsBaseRepository[T]) Update(ctx context.Context, key string, entity *T, revision uint64) error {
	ctx, span := r.startSpan(ctx, "update", key, attribute.Int64("db.nats.revision", int64(revision)))
	defer span.End()

	if !r.IsReady() {
		return finish(span, r.unavailable())
	}

	data, err := r.marshal(ctx, entity)
	if err != nil {
		return finish(span, err)
	}

	if _, err := r.kvStore.Update(ctx, key, data, revision); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return finish(span, domain.NewNotFoundError(fmt.Sprintf("%s not found", r.entityName), err))
		}
		if isRevisionConflict(err) {
			return finish(span, domain.NewConflictError(fmt.Sprintf("%s has been modified", r.entityName), err))
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error updating %s in NATS KV", r.entityName),
			logging.ErrKey, err, "key", key, "revision", revision)
		return finish(span, domain.NewInternalError(
			fmt.Sprintf("failed to update %s in store", r.entityName), err))
	}

	return finish(span, nil)
}

// ListKeys lists every key in the bucket.
func (r *NatsBaseRepository[T]) ListKeys(ctx context.Context) ([]string, error) {
	ctx, span := r.startSpan(ctx, "list_keys", "")
	defer span.End()

	if !r.IsReady() {
		return nil, finish(span, r.unavailable())
	}

	lister, err := r.kvStore.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, finish(span, nil)
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error listing %s keys from NATS KV", r.entityName),
			logging.ErrKey, err)
		return nil, finish(span, domain.NewInternalError(
			fmt.Sprintf("failed to list %s keys from store", r.entityName), err))
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}

	span.SetAttributes(attribute.Int("db.nats.keys_count", len(keys)))
	return keys, finish(span, nil)
}

// ListEntitiesWithPrefix loads every entity whose decoded key starts with
// prefix. Entries that fail to load are logged and skipped.
func (r *NatsBaseRepository[T]) ListEntitiesWithPrefix(ctx context.Context, prefix string) ([]*T, error) {
	keys, err := r.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		entities []*T
		loaders  []func() error
	)
	for _, encodedKey := range keys {
		decodedKey, err := r.keyBuilder.DecodeKey(encodedKey)
		if err != nil {
			slog.WarnContext(ctx, "failed to decode key, skipping",
				"encoded_key", encodedKey, logging.ErrKey, err)
			continue
		}
		if !strings.HasPrefix(decodedKey, prefix) {
			continue
		}

		loaders = append(loaders, func() error {
			entity, err := r.Get(ctx, encodedKey)
			if err != nil {
				return fmt.Errorf("key %s: %w", encodedKey, err)
			}
			mu.Lock()
			entities = append(entities, entity)
			mu.Unlock()
			return nil
		})
	}

	pool := concurrent.NewWorkerPool(listWorkers)
	for _, err := range pool.RunAll(ctx, loaders...) {
		slog.WarnContext(ctx, fmt.Sprintf("failed to get %s, skipping", r.entityName), logging.ErrKey, err)
	}

	return entities, nil
}

// PutIndex points indexKey at the entity uid.
func (r *NatsBaseRepository[T]) PutIndex(ctx context.Context, indexKey, uid string) error {
	if !r.IsReady() {
		return r.unavailable()
	}

	if _, err := r.kvStore.Put(ctx, indexKey, []byte(uid)); err != nil {
		slog.ErrorContext(ctx, "error creating index",
			logging.ErrKey, err, "index_key", indexKey)
		return domain.NewInternalError("failed to create index", err)
	}

	return nil
}

// GetIndex returns the entity uid stored under indexKey.
func (r *NatsBaseRepository[T]) GetIndex(ctx context.Context, indexKey string) (string, error) {
	entry, err := r.GetRaw(ctx, indexKey)
	if err != nil {
		return "", err
	}
	uid := string(entry.Value())
	if uid == "" {
		return "", domain.NewNotFoundError(fmt.Sprintf("%s index '%s' is empty", r.entityName, indexKey))
	}
	return uid, nil
}

// DeleteIndex removes an index entry; a missing entry is not an error.
func (r *NatsBaseRepository[T]) DeleteIndex(ctx context.Context, indexKey string) error {
	if !r.IsReady() {
		return r.unavailable()
	}

	err := r.kvStore.Delete(ctx, indexKey)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		slog.WarnContext(ctx, "error deleting index",
			logging.ErrKey, err, "index_key", indexKey)
		return domain.NewInternalError("failed to delete index", err)
	}

	return nil
}
