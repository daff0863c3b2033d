package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStateTransitions(t *testing.T) {
	s := openTestStorage(t)
	pool := NewWorkerPool(s, Config{NumWorkers: 0, PollInterval: time.Millisecond}, nil, nil)

	assert.Equal(t, PoolCreated, pool.State())

	err := pool.Shutdown(100 * time.Millisecond)
	assert.Error(t, err)

	require.NoError(t, pool.Start(context.Background()))
	assert.Equal(t, PoolRunning, pool.State())

	assert.Error(t, pool.Start(context.Background()))

	require.NoError(t, pool.Shutdown(100*time.Millisecond))
	assert.Equal(t, PoolStopped, pool.State())
}

func TestWorkerPoolProcessesJobWithHandler(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	pool := NewWorkerPool(s, Config{
		NumWorkers:   1,
		PollInterval: 10 * time.Millisecond,
		Timeout:      time.Second,
		RetryDelay:   time.Second,
	}, []Handler{LoggingHandler{}}, metrics)

	job := NewJob(TypeSkillExecution, map[string]any{"skill_id": "kubernetes", "tool_name": "list_pods"}, 3)
	_, err := s.Enqueue(ctx, job)
	require.NoError(t, err)

	require.NoError(t, pool.Start(ctx))
	defer pool.Shutdown(time.Second)

	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, job.ID)
		return err == nil && got.Status == StatusCompleted
	}, 2*time.Second, 20*time.Millisecond)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "kubernetes", got.Result["skill"])
}

func TestWorkerPoolNoHandlerFailsJob(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	pool := NewWorkerPool(s, Config{
		NumWorkers:   1,
		PollInterval: 10 * time.Millisecond,
		Timeout:      time.Second,
		RetryDelay:   time.Millisecond,
	}, nil, nil)

	job := NewJob(TypeSkillIndexing, nil, 0)
	_, err := s.Enqueue(ctx, job)
	require.NoError(t, err)

	require.NoError(t, pool.Start(ctx))
	defer pool.Shutdown(time.Second)

	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, job.ID)
		return err == nil && got.Status == StatusFailed
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWorkerContextReportProgressNonBlocking(t *testing.T) {
	ch := make(chan Progress) // unbuffered, nothing draining it
	wctx := &WorkerContext{WorkerID: "w", progressCh: ch}

	// Must not block even though nothing reads from ch.
	done := make(chan struct{})
	go func() {
		wctx.ReportProgress("job-1", 50, "step")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ReportProgress blocked")
	}
}
