// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Run(t *testing.T) {
	pool := NewWorkerPool(2)

	var counter int64
	functions := []func() error{
		func() error { atomic.AddInt64(&counter, 1); return nil },
		func() error { atomic.AddInt64(&counter, 2); return nil },
		func() error { atomic.AddInt64(&counter, 3); return nil },
	}

	require.NoError(t, pool.Run(context.Background(), functions...))
	assert.Equal(t, int64(6), atomic.LoadInt64(&counter))
}

func TestWorkerPool_Run_ReturnsFirstError(t *testing.T) {
	pool := NewWorkerPool(1)
	expected := errors.New("job failed")

	var ranAfterFailure atomic.Bool
	err := pool.Run(context.Background(),
		func() error { return expected },
		func() error { ranAfterFailure.Store(true); return nil },
	)

	assert.ErrorIs(t, err, expected)
	assert.False(t, ranAfterFailure.Load(), "work queued behind a failure is cancelled")
}

func TestWorkerPool_RunAll_CollectsEveryError(t *testing.T) {
	pool := NewWorkerPool(3)
	errA := errors.New("a")
	errC := errors.New("c")

	var ran int64
	errs := pool.RunAll(context.Background(),
		func() error { atomic.AddInt64(&ran, 1); return errA },
		func() error { atomic.AddInt64(&ran, 1); return nil },
		func() error { atomic.AddInt64(&ran, 1); return errC },
	)

	assert.Equal(t, int64(3), atomic.LoadInt64(&ran))
	assert.Equal(t, []error{errA, errC}, errs)
}

func TestWorkerPool_RunAll_CancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := pool.RunAll(ctx, func() error { return nil }, func() error { return nil })
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestWorkerPool_LimitsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)

	var inFlight, peak int64
	work := func() error {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil
	}

	require.Empty(t, pool.RunAll(context.Background(), work, work, work, work, work))
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestNewWorkerPool_MinimumOneWorker(t *testing.T) {
	assert.Equal(t, 1, NewWorkerPool(0).workerCount)
	assert.Equal(t, 1, NewWorkerPool(-3).workerCount)
}
