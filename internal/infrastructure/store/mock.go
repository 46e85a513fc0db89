// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// memoryEntry implements jetstream.KeyValueEntry for the in-memory store.
type memoryEntry struct {
	key      string
	value    []byte
	revision uint64
	created  time.Time
}

func (m *memoryEntry) Key() string                     { return m.key }
func (m *memoryEntry) Value() []byte                   { return m.value }
func (m *memoryEntry) Revision() uint64                { return m.revision }
func (m *memoryEntry) Created() time.Time              { return m.created }
func (m *memoryEntry) Delta() uint64                   { return 0 }
func (m *memoryEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }
func (m *memoryEntry) Bucket() string                  { return "memory" }

// memoryKeyLister implements jetstream.KeyLister over a snapshot of keys.
type memoryKeyLister struct {
	keys []string
}

func (m *memoryKeyLister) Keys() <-chan string {
	ch := make(chan string, len(m.keys))
	for _, key := range m.keys {
		ch <- key
	}
	close(ch)
	return ch
}

func (m *memoryKeyLister) Stop() error { return nil }

// InMemoryKeyValue is a goroutine-safe INatsKeyValue used by tests. It follows
// the jetstream revision rules: Update with revision 0 only succeeds for a key
// that has never been written, and a stale revision fails with the same
// "wrong last sequence" error the server returns.
type InMemoryKeyValue struct {
	mu        sync.Mutex
	data      map[string][]byte
	revisions map[string]uint64
	sequence  uint64

	// injected failures
	PutError    error
	GetError    error
	UpdateError error
	DeleteError error
	ListError   error
}

// NewInMemoryKeyValue returns an empty in-memory bucket.
func NewInMemoryKeyValue() *InMemoryKeyValue {
	return &InMemoryKeyValue{
		data:      make(map[string][]byte),
		revisions: make(map[string]uint64),
	}
}

// Len returns the number of live keys.
func (m *InMemoryKeyValue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *InMemoryKeyValue) ListKeys(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	if len(m.data) == 0 {
		return nil, jetstream.ErrNoKeysFound
	}
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &memoryKeyLister{keys: keys}, nil
}

func (m *InMemoryKeyValue) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetError != nil {
		return nil, m.GetError
	}
	value, exists := m.data[key]
	if !exists {
		return nil, jetstream.ErrKeyNotFound
	}
	return &memoryEntry{key: key, value: value, revision: m.revisions[key], created: time.Now()}, nil
}

func (m *InMemoryKeyValue) Put(_ context.Context, key string, data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PutError != nil {
		return 0, m.PutError
	}
	return m.write(key, data), nil
}

func (m *InMemoryKeyValue) Update(_ context.Context, key string, data []byte, expectedRevision uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateError != nil {
		return 0, m.UpdateError
	}
	current, exists := m.revisions[key]
	if !exists && expectedRevision != 0 {
		return 0, jetstream.ErrKeyNotFound
	}
	if current != expectedRevision {
		return 0, fmt.Errorf("nats: wrong last sequence: %d", current)
	}
	return m.write(key, data), nil
}

func (m *InMemoryKeyValue) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, exists := m.data[key]; !exists {
		return jetstream.ErrKeyNotFound
	}
	// revisions are kept so that a deleted key cannot be recreated with
	// revision 0, matching the stream's per-subject sequence
	delete(m.data, key)
	return nil
}

// write stores data under key and returns the new revision. Caller holds mu.
func (m *InMemoryKeyValue) write(key string, data []byte) uint64 {
	m.sequence++
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[key] = stored
	m.revisions[key] = m.sequence
	return m.sequence
}
