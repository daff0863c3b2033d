// Package jobs implements the Background Job Scheduler: a durable work
// queue with a worker pool, exponential backoff retries, progress
// streaming, and cooperative shutdown, grounded on
// original_source/crates/skill-runtime/src/jobs/worker.rs.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// Type identifies what kind of work a job performs. Handlers declare which
// types they can process.
type Type string

const (
	TypeSkillExecution    Type = "skill_execution"
	TypeExampleGeneration Type = "example_generation"
	TypeSkillIndexing     Type = "skill_indexing"
	TypeFullReindex       Type = "full_reindex"
)

// Job is a unit of durable background work.
type Job struct {
	ID          string
	Type        Type
	Payload     map[string]any
	Status      Status
	Attempts    int
	MaxRetries  int
	CreatedAt   time.Time
	ScheduledAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	LastError   string
	Result      map[string]any
}

// NewJob creates a pending job ready to enqueue.
func NewJob(jobType Type, payload map[string]any, maxRetries int) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     payload,
		Status:      StatusPending,
		MaxRetries:  maxRetries,
		CreatedAt:   now,
		ScheduledAt: now,
	}
}

// Progress is a single progress update emitted by a handler while a job
// runs.
type Progress struct {
	JobID      string
	Percentage uint8
	Step       string
	Details    string
	At         time.Time
}

// NewProgress builds a Progress event stamped with the current time.
func NewProgress(jobID string, percentage uint8, step string) Progress {
	return Progress{JobID: jobID, Percentage: percentage, Step: step, At: time.Now()}
}

// WithDetails returns a copy of p carrying additional detail text.
func (p Progress) WithDetails(details string) Progress {
	p.Details = details
	return p
}

// Stats summarizes queue state, grounded on worker.rs's WorkerPoolStats and
// spec 4.6's "histogram by status, success rate, average execution
// duration".
type Stats struct {
	ByStatus       map[Status]int
	SuccessRate    float32
	AvgExecutionMS int64
}
