package jobs

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kubiyabot/skillrt/pkg/apperr"
)

var jobsBucket = []byte("jobs")

// Storage is the Job Storage contract: a durable queue backed by a
// persistent key-value store, grounded on spec section 4.6 and on
// worker.rs's JobStorage trait usage (enqueue/dequeue/complete/fail/stats).
type Storage interface {
	Enqueue(ctx context.Context, job *Job) (string, error)
	Dequeue(ctx context.Context, workerID string) (*Job, error)
	Complete(ctx context.Context, id string, result map[string]any) error
	Fail(ctx context.Context, id string, errMsg string, baseDelay time.Duration) error
	Get(ctx context.Context, id string) (*Job, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// BoltStorage persists jobs in a single bbolt bucket, keyed by job id.
// bbolt serializes write transactions, which is what gives Dequeue the
// linearizable claim spec 4.6 and invariant "at most one dequeue returns a
// job while its status is running" require — no separate in-process lock
// is needed on top of it.
type BoltStorage struct {
	db *bolt.DB
}

// OpenBoltStorage opens (creating if absent) a bbolt database at path and
// ensures the jobs bucket exists.
func OpenBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "open job store", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(jobsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.LoadError, "create jobs bucket", err)
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func (s *BoltStorage) Enqueue(ctx context.Context, job *Job) (string, error) {
	if job.ID == "" {
		return "", apperr.New(apperr.InvalidInput, "job id is required")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return b.Put([]byte(job.ID), data)
	})
	if err != nil {
		return "", apperr.Wrap(apperr.RetryableBackend, "enqueue job", err)
	}
	return job.ID, nil
}

// Dequeue atomically claims one pending job whose ScheduledAt has passed,
// preferring the oldest CreatedAt, and marks it running.
func (s *BoltStorage) Dequeue(ctx context.Context, workerID string) (*Job, error) {
	var claimed *Job
	now := time.Now()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		var candidates []*Job

		err := b.ForEach(func(k, v []byte) error {
			var j Job
			if err := json.Unmarshal(v, &j); err != nil {
				return err
			}
			if j.Status == StatusPending && !j.ScheduledAt.After(now) {
				candidates = append(candidates, &j)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		})
		job := candidates[0]
		job.Status = StatusRunning
		job.Attempts++
		started := now
		job.StartedAt = &started

		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(job.ID), data); err != nil {
			return err
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.RetryableBackend, "dequeue job", err)
	}
	return claimed, nil
}

func (s *BoltStorage) Complete(ctx context.Context, id string, result map[string]any) error {
	return s.update(id, func(job *Job) error {
		job.Status = StatusCompleted
		job.Result = result
		now := time.Now()
		job.CompletedAt = &now
		job.LastError = ""
		return nil
	})
}

// Fail records a failed attempt. If attempts remain, the job goes back to
// pending with scheduled_at = now + base_delay * 2^(attempts-1); otherwise
// it becomes terminally failed, matching spec 4.6's backoff formula.
func (s *BoltStorage) Fail(ctx context.Context, id string, errMsg string, baseDelay time.Duration) error {
	return s.update(id, func(job *Job) error {
		job.LastError = errMsg
		if job.Attempts <= job.MaxRetries {
			backoff := time.Duration(float64(baseDelay) * math.Pow(2, float64(job.Attempts-1)))
			job.Status = StatusPending
			job.ScheduledAt = time.Now().Add(backoff)
		} else {
			job.Status = StatusFailed
			now := time.Now()
			job.CompletedAt = &now
		}
		return nil
	})
}

func (s *BoltStorage) Get(ctx context.Context, id string) (*Job, error) {
	var job *Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		var j Job
		if err := json.Unmarshal(data, &j); err != nil {
			return err
		}
		job = &j
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.LoadError, "get job", err)
	}
	if job == nil {
		return nil, apperr.Newf(apperr.NotFound, "job %s not found", id)
	}
	return job, nil
}

func (s *BoltStorage) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: map[Status]int{}}
	var totalDurationMS int64
	var completedWithDuration int
	var total int

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		return b.ForEach(func(k, v []byte) error {
			var j Job
			if err := json.Unmarshal(v, &j); err != nil {
				return err
			}
			stats.ByStatus[j.Status]++
			total++
			if j.Status == StatusCompleted && j.StartedAt != nil && j.CompletedAt != nil {
				totalDurationMS += j.CompletedAt.Sub(*j.StartedAt).Milliseconds()
				completedWithDuration++
			}
			return nil
		})
	})
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.LoadError, "compute job stats", err)
	}

	if total > 0 {
		stats.SuccessRate = float32(stats.ByStatus[StatusCompleted]) / float32(total)
	}
	if completedWithDuration > 0 {
		stats.AvgExecutionMS = totalDurationMS / int64(completedWithDuration)
	}
	return stats, nil
}

func (s *BoltStorage) update(id string, mutate func(job *Job) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return apperr.Newf(apperr.NotFound, "job %s not found", id)
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}
		if err := mutate(&job); err != nil {
			return err
		}
		updated, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}
