// Package jobqueue provides the Postgres-backed named-queue substrate shared
// by every worker role in the pipeline (scheduler tick, run creator, run
// orchestrator, execution worker, AI testcase generation). One physical
// "jobs" table backs all queues; a queue name partitions it.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobAvailable indicates no claimable job exists in the queue right now.
	ErrNoJobAvailable = errors.New("no job available")

	// ErrAtCapacity indicates the caller-enforced concurrency limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// Job is one claimed row from the jobs table.
type Job struct {
	ID             int64
	QueueName      string
	Payload        json.RawMessage
	IdempotencyKey string
	Attempts       int
	MaxAttempts    int
	CreatedAt      time.Time
}

// Handler processes one claimed Job. Returning an error causes the job to be
// retried (with backoff) up to MaxAttempts, then parked as FAILED.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, job *Job) error { return f(ctx, job) }

// PoolHealth reports health for an entire worker pool bound to one queue.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	DBReachable   bool           `json:"db_reachable"`
	DBError       string         `json:"db_error,omitempty"`
	QueueName     string         `json:"queue_name"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	PendingDepth  int            `json:"pending_depth"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth reports health for a single worker goroutine.
type WorkerHealth struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"` // "idle" or "working"
	CurrentJobID   int64     `json:"current_job_id,omitempty"`
	JobsProcessed  int       `json:"jobs_processed"`
	LastActivity   time.Time `json:"last_activity"`
}
