// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a process-local cache with a fixed time to live. Expiry is
// checked on read and entries are never evicted, so an expired entry stays
// available to GetStale until it is overwritten.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry[V]
}

// NewTTLCache creates a cache whose entries expire ttl after they are set.
func NewTTLCache[V any](ttl time.Duration, now func() time.Time) *TTLCache[V] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry[V]),
	}
}

// Get returns the value for key if it has not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// GetStale returns the last value stored for key, expired or not.
func (c *TTLCache[V]) GetStale(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return entry.value, ok
}

// Set stores value under key.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// BackoffWindow holds the instant until which rate-limited calls are
// suppressed. The zero value is an inactive window.
type BackoffWindow struct {
	until atomic.Int64 // unix nanoseconds, 0 when inactive
}

// Until returns the resume instant and whether it is still in the future.
func (b *BackoffWindow) Until(now time.Time) (time.Time, bool) {
	until := b.until.Load()
	if until == 0 {
		return time.Time{}, false
	}
	resume := time.Unix(0, until)
	return resume, now.Before(resume)
}

// Enter opens the window until resume.
func (b *BackoffWindow) Enter(resume time.Time) {
	b.until.Store(resume.UnixNano())
}

// Clear closes the window.
func (b *BackoffWindow) Clear() {
	b.until.Store(0)
}
