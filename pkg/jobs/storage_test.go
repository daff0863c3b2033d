package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *BoltStorage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := OpenBoltStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	job := NewJob(TypeSkillExecution, map[string]any{"skill_id": "kubernetes"}, 3)
	id, err := s.Enqueue(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)

	dequeued, err := s.Dequeue(ctx, "worker-0")
	require.NoError(t, err)
	require.NotNil(t, dequeued)
	assert.Equal(t, StatusRunning, dequeued.Status)
	assert.Equal(t, 1, dequeued.Attempts)
	assert.NotNil(t, dequeued.StartedAt)
}

func TestDequeueEmptyReturnsNil(t *testing.T) {
	s := openTestStorage(t)
	job, err := s.Dequeue(context.Background(), "worker-0")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDequeueOnlyOneWorkerWins(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	job := NewJob(TypeSkillIndexing, nil, 3)
	_, err := s.Enqueue(ctx, job)
	require.NoError(t, err)

	first, err := s.Dequeue(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.Dequeue(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestCompleteTransitionsToCompleted(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	job := NewJob(TypeSkillIndexing, nil, 3)
	_, _ = s.Enqueue(ctx, job)
	dequeued, _ := s.Dequeue(ctx, "w")

	require.NoError(t, s.Complete(ctx, dequeued.ID, map[string]any{"ok": true}))

	got, err := s.Get(ctx, dequeued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, true, got.Result["ok"])
}

func TestFailWithRetriesSchedulesBackoff(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	job := NewJob(TypeSkillIndexing, nil, 3)
	_, _ = s.Enqueue(ctx, job)

	before := time.Now()
	dequeued, _ := s.Dequeue(ctx, "w")
	require.Equal(t, 1, dequeued.Attempts)

	require.NoError(t, s.Fail(ctx, dequeued.ID, "boom", 5*time.Second))

	got, err := s.Get(ctx, dequeued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "boom", got.LastError)
	assert.True(t, got.ScheduledAt.After(before.Add(4*time.Second)))
}

func TestFailExhaustsRetriesToTerminal(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	job := NewJob(TypeSkillIndexing, nil, 0)
	_, _ = s.Enqueue(ctx, job)

	dequeued, _ := s.Dequeue(ctx, "w")
	require.NoError(t, s.Fail(ctx, dequeued.ID, "boom", time.Second))

	got, err := s.Get(ctx, dequeued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestBackoffDoublesPerAttempt(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	job := NewJob(TypeSkillIndexing, nil, 3)
	job.ScheduledAt = time.Now().Add(-time.Hour)
	_, _ = s.Enqueue(ctx, job)

	// attempt 1
	d1, _ := s.Dequeue(ctx, "w")
	base := time.Now()
	require.NoError(t, s.Fail(ctx, d1.ID, "e1", 5*time.Second))
	g1, _ := s.Get(ctx, d1.ID)
	delay1 := g1.ScheduledAt.Sub(base)
	assert.InDelta(t, 5.0, delay1.Seconds(), 1.0)

	// force it eligible again and attempt 2
	g1.ScheduledAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.update(g1.ID, func(j *Job) error { j.ScheduledAt = g1.ScheduledAt; return nil }))
	d2, _ := s.Dequeue(ctx, "w")
	base2 := time.Now()
	require.NoError(t, s.Fail(ctx, d2.ID, "e2", 5*time.Second))
	g2, _ := s.Get(ctx, d2.ID)
	delay2 := g2.ScheduledAt.Sub(base2)
	assert.InDelta(t, 10.0, delay2.Seconds(), 1.5)
}

func TestStatsCountsByStatus(t *testing.T) {
	ctx := context.Background()
	s := openTestStorage(t)

	j1 := NewJob(TypeSkillIndexing, nil, 3)
	_, _ = s.Enqueue(ctx, j1)
	d1, _ := s.Dequeue(ctx, "w")
	require.NoError(t, s.Complete(ctx, d1.ID, nil))

	j2 := NewJob(TypeSkillIndexing, nil, 3)
	_, _ = s.Enqueue(ctx, j2)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[StatusPending])
	assert.Equal(t, float32(0.5), stats.SuccessRate)
}
