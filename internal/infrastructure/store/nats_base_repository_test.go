// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
)

// TestEntity for testing the base repository
type TestEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNatsBaseRepository_IsReady(t *testing.T) {
	tests := []struct {
		name     string
		kvStore  INatsKeyValue
		expected bool
	}{
		{
			name:     "ready when kvStore is not nil",
			kvStore:  NewInMemoryKeyValue(),
			expected: true,
		},
		{
			name:     "not ready when kvStore is nil",
			kvStore:  nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewNatsBaseRepository[TestEntity](tt.kvStore, "test")
			assert.Equal(t, tt.expected, repo.IsReady())
		})
	}
}

func TestNatsBaseRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip with revision", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](NewInMemoryKeyValue(), "test")

		require.NoError(t, repo.CreateIfAbsent(ctx, "test-key", &TestEntity{ID: "test-1", Name: "Test Entity"}))

		result, revision, err := repo.GetWithRevision(ctx, "test-key")
		require.NoError(t, err)
		assert.Equal(t, "test-1", result.ID)
		assert.Equal(t, "Test Entity", result.Name)
		assert.NotZero(t, revision)
	})

	t.Run("not found", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](NewInMemoryKeyValue(), "test")

		result, err := repo.Get(ctx, "nonexistent")
		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("repository not ready", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](nil, "test")

		result, err := repo.Get(ctx, "test-key")
		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		kv := NewInMemoryKeyValue()
		kv.GetError = errors.New("connection reset")
		repo := NewNatsBaseRepository[TestEntity](kv, "test")

		_, err := repo.Get(ctx, "test-key")
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})

	t.Run("corrupt value is internal", func(t *testing.T) {
		kv := NewInMemoryKeyValue()
		_, err := kv.Put(ctx, "test-key", []byte("{not json"))
		require.NoError(t, err)
		repo := NewNatsBaseRepository[TestEntity](kv, "test")

		_, err = repo.Get(ctx, "test-key")
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})
}

func TestNatsBaseRepository_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("second create conflicts", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](NewInMemoryKeyValue(), "test")

		require.NoError(t, repo.CreateIfAbsent(ctx, "k", &TestEntity{ID: "first"}))
		err := repo.CreateIfAbsent(ctx, "k", &TestEntity{ID: "second"})
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))

		stored, err := repo.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "first", stored.ID)
	})

	t.Run("concurrent creates have exactly one winner", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](NewInMemoryKeyValue(), "test")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.CreateIfAbsent(ctx, "shared", &TestEntity{ID: fmt.Sprint(i)})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if domain.GetErrorType(err) == domain.ErrorTypeConflict {
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, 15, conflicts)
	})
}

func TestNatsBaseRepository_Update(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		seed     bool
		revision func(current uint64) uint64
		wantType *domain.ErrorType
	}{
		{
			name:     "current revision succeeds",
			seed:     true,
			revision: func(current uint64) uint64 { return current },
		},
		{
			name:     "stale revision conflicts",
			seed:     true,
			revision: func(current uint64) uint64 { return current + 10 },
			wantType: ptrType(domain.ErrorTypeConflict),
		},
		{
			name:     "missing key is not found",
			seed:     false,
			revision: func(uint64) uint64 { return 3 },
			wantType: ptrType(domain.ErrorTypeNotFound),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewNatsBaseRepository[TestEntity](NewInMemoryKeyValue(), "test")
			var current uint64
			if tt.seed {
				require.NoError(t, repo.CreateIfAbsent(ctx, "k", &TestEntity{ID: "1", Name: "before"}))
				_, rev, err := repo.GetWithRevision(ctx, "k")
				require.NoError(t, err)
				current = rev
			}

			err := repo.Update(ctx, "k", &TestEntity{ID: "1", Name: "after"}, tt.revision(current))
			if tt.wantType == nil {
				require.NoError(t, err)
				stored, err := repo.Get(ctx, "k")
				require.NoError(t, err)
				assert.Equal(t, "after", stored.Name)
				return
			}
			assert.Equal(t, *tt.wantType, domain.GetErrorType(err))
		})
	}
}

func TestNatsBaseRepository_ListEntitiesWithPrefix(t *testing.T) {
	ctx := context.Background()
	kv := NewInMemoryKeyValue()
	repo := NewNatsBaseRepository[TestEntity](kv, "test")
	kb := NewKeyBuilder("")

	for i := range 5 {
		require.NoError(t, repo.CreateIfAbsent(ctx, kb.EntityKey("thing", fmt.Sprint(i)), &TestEntity{ID: fmt.Sprint(i)}))
	}
	require.NoError(t, repo.PutIndex(ctx, kb.LookupKey("name", "x"), "0"))
	// undecodable keys are skipped
	_, err := kv.Put(ctx, "raw!key", []byte("{}"))
	require.NoError(t, err)

	entities, err := repo.ListEntitiesWithPrefix(ctx, kb.DecodedPrefix("thing"))
	require.NoError(t, err)
	assert.Len(t, entities, 5)
}

func TestNatsBaseRepository_ListEmptyBucket(t *testing.T) {
	repo := NewNatsBaseRepository[TestEntity](NewInMemoryKeyValue(), "test")

	entities, err := repo.ListEntitiesWithPrefix(context.Background(), "/thing/")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestNatsBaseRepository_Index(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsBaseRepository[TestEntity](NewInMemoryKeyValue(), "test")

	require.NoError(t, repo.PutIndex(ctx, "idx", "uid-1"))
	uid, err := repo.GetIndex(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	require.NoError(t, repo.DeleteIndex(ctx, "idx"))
	require.NoError(t, repo.DeleteIndex(ctx, "idx"), "deleting a missing index is not an error")

	_, err = repo.GetIndex(ctx, "idx")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func ptrType(t domain.ErrorType) *domain.ErrorType { return &t }
