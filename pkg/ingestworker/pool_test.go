package ingestworker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DispatchNonBlocking(t *testing.T) {
	pool := NewPool(2, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	defer pool.Stop()

	start := time.Now()
	ok := pool.TryDispatch(Job{
		MessageID: "MSG1",
		Handler: func(ctx context.Context) {
			time.Sleep(100 * time.Millisecond)
		},
	})
	elapsed := time.Since(start)

	assert.True(t, ok)
	assert.Less(t, elapsed, 50*time.Millisecond, "TryDispatch must not block on the job")
}

func TestPool_ProcessesAllJobs(t *testing.T) {
	pool := NewPool(4, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)

	var processed int32
	for i := 0; i < 50; i++ {
		require.True(t, pool.TryDispatch(Job{
			MessageID: "MSG",
			Handler: func(ctx context.Context) {
				atomic.AddInt32(&processed, 1)
			},
		}))
	}

	pool.Stop()
	assert.Equal(t, int32(50), atomic.LoadInt32(&processed))

	stats := pool.Stats()
	assert.Equal(t, int64(50), stats.TotalDispatched)
	assert.Equal(t, int64(50), stats.TotalProcessed)
	assert.Equal(t, int64(0), stats.TotalDropped)
}

func TestPool_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	// Un solo worker bloqueado y cola de 1: el tercer job debe descartarse.
	pool := NewPool(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)

	release := make(chan struct{})
	blocking := Job{MessageID: "BLOCK", Handler: func(ctx context.Context) { <-release }}

	require.True(t, pool.TryDispatch(blocking))
	time.Sleep(20 * time.Millisecond) // let the worker pick it up
	require.True(t, pool.TryDispatch(Job{MessageID: "QUEUED", Handler: func(ctx context.Context) {}}))

	dropped := pool.TryDispatch(Job{MessageID: "DROPPED", Handler: func(ctx context.Context) {}})
	assert.False(t, dropped)
	assert.Equal(t, int64(1), pool.Stats().TotalDropped)

	close(release)
	pool.Stop()
}

func TestPool_DispatchAfterStopFails(t *testing.T) {
	pool := NewPool(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	pool.Stop()

	assert.False(t, pool.TryDispatch(Job{MessageID: "LATE", Handler: func(ctx context.Context) {}}))
}

func TestPool_StatsSnapshot(t *testing.T) {
	pool := NewPool(3, 7)
	stats := pool.Stats()

	assert.Equal(t, 3, stats.NumWorkers)
	assert.Equal(t, 7, stats.QueueSize)
	assert.Equal(t, 0, stats.QueueDepth)
}
