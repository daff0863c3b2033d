package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kubiyabot/skillrt/internal/logger"
	"github.com/kubiyabot/skillrt/pkg/apperr"
)

// Config configures a worker pool. Defaults mirror worker.rs's
// WorkerConfig::default (num_workers=4, concurrency=2, timeout=300s,
// max_retries=3, retry_delay=5s, poll_interval=500ms, heartbeat=30s).
type Config struct {
	NumWorkers        int
	Concurrency       int
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	PollInterval      time.Duration
	HeartbeatEnabled  bool
	HeartbeatInterval time.Duration
}

// DefaultConfig matches worker.rs's defaults.
func DefaultConfig() Config {
	return Config{
		NumWorkers:        4,
		Concurrency:       2,
		Timeout:           300 * time.Second,
		MaxRetries:        3,
		RetryDelay:        5 * time.Second,
		PollInterval:      500 * time.Millisecond,
		HeartbeatEnabled:  true,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Handler processes jobs of the types it declares support for.
type Handler interface {
	Handle(ctx context.Context, job *Job, wctx *WorkerContext) (map[string]any, error)
	CanHandle(jobType Type) bool
	Name() string
}

// WorkerContext is passed to a Handler so it can report progress without
// holding a reference to the pool itself.
type WorkerContext struct {
	WorkerID   string
	progressCh chan<- Progress
}

// ReportProgress sends a progress update. Non-blocking: if the shared
// channel is full the update is dropped, matching spec 4.6's "best-effort,
// non-blocking; drops tolerated" guarantee. This drops whichever update
// loses the race for the last slot, which in practice is the newest one,
// not the oldest queued event.
func (w *WorkerContext) ReportProgress(jobID string, percentage uint8, step string) {
	select {
	case w.progressCh <- NewProgress(jobID, percentage, step):
	default:
	}
}

// ReportProgressWithDetails is ReportProgress plus a details string.
func (w *WorkerContext) ReportProgressWithDetails(jobID string, percentage uint8, step, details string) {
	select {
	case w.progressCh <- NewProgress(jobID, percentage, step).WithDetails(details):
	default:
	}
}

// PoolState is the worker pool's lifecycle state machine:
// Created -> Running -> ShuttingDown -> Stopped.
type PoolState string

const (
	PoolCreated      PoolState = "created"
	PoolRunning      PoolState = "running"
	PoolShuttingDown PoolState = "shutting_down"
	PoolStopped      PoolState = "stopped"
)

// WorkerPool dequeues jobs from Storage and dispatches them to matching
// Handlers, grounded directly on worker.rs's WorkerPool/worker_loop.
type WorkerPool struct {
	storage  Storage
	cfg      Config
	handlers []Handler

	mu    sync.RWMutex
	state PoolState

	progressCh chan Progress
	group      *errgroup.Group
	cancel     context.CancelFunc

	metrics *Metrics
}

// NewWorkerPool builds a pool in the Created state.
func NewWorkerPool(storage Storage, cfg Config, handlers []Handler, metrics *Metrics) *WorkerPool {
	return &WorkerPool{
		storage:    storage,
		cfg:        cfg,
		handlers:   handlers,
		state:      PoolCreated,
		progressCh: make(chan Progress, 100),
		metrics:    metrics,
	}
}

// State returns the pool's current lifecycle state.
func (p *WorkerPool) State() PoolState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Progress returns the channel external listeners can drain for progress
// updates across all jobs.
func (p *WorkerPool) Progress() <-chan Progress {
	return p.progressCh
}

// Start spawns NumWorkers goroutines under an errgroup, grounded on the
// teacher's use of golang.org/x/sync for bounded concurrent fan-out. Only
// valid from Created.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != PoolCreated {
		p.mu.Unlock()
		return apperr.New(apperr.InvalidInput, "pool can only be started from created state")
	}
	p.state = PoolRunning
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	group, groupCtx := errgroup.WithContext(runCtx)
	p.group = group
	p.mu.Unlock()

	log := logger.GetLogger()
	log.Info().Int("workers", p.cfg.NumWorkers).Msg("starting job worker pool")

	for i := 0; i < p.cfg.NumWorkers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		group.Go(func() error {
			p.workerLoop(groupCtx, workerID)
			return nil
		})
	}
	return nil
}

// Shutdown signals all workers to stop at their next loop boundary and
// waits up to timeout for them to exit. Only valid from Running.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.state != PoolRunning {
		p.mu.Unlock()
		return apperr.New(apperr.InvalidInput, "pool can only be shut down from running state")
	}
	p.state = PoolShuttingDown
	cancel := p.cancel
	group := p.group
	p.mu.Unlock()

	logger.GetLogger().Info().Msg("shutting down job worker pool")
	cancel()

	done := make(chan struct{})
	go func() {
		group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}

	p.mu.Lock()
	p.state = PoolStopped
	p.mu.Unlock()
	return nil
}

// Stats reports pool and queue statistics.
func (p *WorkerPool) Stats(ctx context.Context) (WorkerPoolStats, error) {
	jobStats, err := p.storage.Stats(ctx)
	if err != nil {
		return WorkerPoolStats{}, err
	}
	return WorkerPoolStats{
		State:       p.State(),
		NumWorkers:  p.cfg.NumWorkers,
		PendingJobs: jobStats.ByStatus[StatusPending],
		RunningJobs: jobStats.ByStatus[StatusRunning],
		CompletedJobs: jobStats.ByStatus[StatusCompleted],
		FailedJobs:  jobStats.ByStatus[StatusFailed],
		SuccessRate: jobStats.SuccessRate,
		AvgExecutionMS: jobStats.AvgExecutionMS,
	}, nil
}

// WorkerPoolStats is the read model for pool introspection, mirroring
// worker.rs's WorkerPoolStats.
type WorkerPoolStats struct {
	State          PoolState
	NumWorkers     int
	PendingJobs    int
	RunningJobs    int
	CompletedJobs  int
	FailedJobs     int
	SuccessRate    float32
	AvgExecutionMS int64
}

func (p *WorkerPool) workerLoop(ctx context.Context, workerID string) {
	log := logger.GetLogger()
	wctx := &WorkerContext{WorkerID: workerID, progressCh: p.progressCh}

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("worker", workerID).Msg("worker received shutdown signal")
			return
		default:
		}

		job, err := p.storage.Dequeue(ctx, workerID)
		if err != nil {
			log.Error().Str("worker", workerID).Err(err).Msg("failed to dequeue job")
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}
		if job == nil {
			p.sleep(ctx, p.cfg.PollInterval)
			continue
		}

		p.processJob(ctx, workerID, job, wctx)
	}
}

func (p *WorkerPool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (p *WorkerPool) processJob(ctx context.Context, workerID string, job *Job, wctx *WorkerContext) {
	log := logger.GetLogger()

	var handler Handler
	for _, h := range p.handlers {
		if h.CanHandle(job.Type) {
			handler = h
			break
		}
	}
	if handler == nil {
		log.Warn().Str("worker", workerID).Str("job", job.ID).Str("type", string(job.Type)).Msg("no handler found for job type")
		p.fail(ctx, job.ID, "no handler found for job type")
		return
	}

	execCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	result, err := p.invoke(execCtx, handler, job, wctx)
	if execCtx.Err() != nil {
		log.Warn().Str("worker", workerID).Str("job", job.ID).Msg("job timed out")
		p.fail(ctx, job.ID, fmt.Sprintf("job timed out after %s", p.cfg.Timeout))
		p.recordOutcome(false)
		return
	}
	if err != nil {
		log.Error().Str("worker", workerID).Str("job", job.ID).Err(err).Msg("job execution failed")
		p.fail(ctx, job.ID, err.Error())
		p.recordOutcome(false)
		return
	}

	if err := p.storage.Complete(ctx, job.ID, result); err != nil {
		log.Error().Str("worker", workerID).Str("job", job.ID).Err(err).Msg("failed to mark job completed")
	}
	p.recordOutcome(true)
}

// invoke recovers from a handler panic and converts it into a failure,
// matching spec 7's "panics inside a job are caught, converted to fail, and
// the worker continues".
func (p *WorkerPool) invoke(ctx context.Context, handler Handler, job *Job, wctx *WorkerContext) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Newf(apperr.InvocationError, "handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, job, wctx)
}

func (p *WorkerPool) fail(ctx context.Context, jobID, msg string) {
	if err := p.storage.Fail(ctx, jobID, msg, p.cfg.RetryDelay); err != nil {
		logger.GetLogger().Error().Str("job", jobID).Err(err).Msg("failed to mark job failed")
	}
}

func (p *WorkerPool) recordOutcome(success bool) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordJobOutcome(success)
}
