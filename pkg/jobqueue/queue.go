package jobqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Queue is the claim/complete/fail substrate for one logical queue name,
// backed by the shared "jobs" table. Concurrent Queue instances across
// replicas/pods coordinate purely through FOR UPDATE SKIP LOCKED — no
// external lock service is needed.
type Queue struct {
	db        *sql.DB
	name      string
	claimedBy string
}

// New returns a Queue bound to queueName. claimedBy identifies this
// process/pod in the claimed_by column, used for diagnostics and orphan
// recovery.
func New(db *sql.DB, queueName, claimedBy string) *Queue {
	return &Queue{db: db, name: queueName, claimedBy: claimedBy}
}

// Enqueue inserts a new PENDING job. If idempotencyKey is non-empty and a
// job with the same (queue_name, idempotency_key) already exists, Enqueue
// is a no-op and returns nil (§9
// at-least-once delivery / dedup on replay).
func (q *Queue) Enqueue(ctx context.Context, payload any, idempotencyKey string, maxAttempts int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	var key any
	if idempotencyKey != "" {
		key = idempotencyKey
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO jobs (queue_name, payload, idempotency_key, max_attempts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (queue_name, idempotency_key) WHERE idempotency_key IS NOT NULL
		DO NOTHING`,
		q.name, data, key, maxAttempts)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// EnqueueAt is Enqueue but the job only becomes claimable at availableAt
// (used by the scheduler tick worker for cron-derived future runs).
func (q *Queue) EnqueueAt(ctx context.Context, payload any, idempotencyKey string, maxAttempts int, availableAt time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	var key any
	if idempotencyKey != "" {
		key = idempotencyKey
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO jobs (queue_name, payload, idempotency_key, max_attempts, available_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (queue_name, idempotency_key) WHERE idempotency_key IS NOT NULL
		DO NOTHING`,
		q.name, data, key, maxAttempts, availableAt)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Claim atomically claims the next available job using FOR UPDATE SKIP
// LOCKED, the same pattern the teacher uses for session claiming.
func (q *Queue) Claim(ctx context.Context) (*Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, payload, COALESCE(idempotency_key, ''), attempts, max_attempts, created_at
		FROM jobs
		WHERE queue_name = $1
		  AND status = 'PENDING'
		  AND available_at <= now()
		ORDER BY available_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
		q.name)

	var job Job
	job.QueueName = q.name
	if err := row.Scan(&job.ID, &job.Payload, &job.IdempotencyKey, &job.Attempts, &job.MaxAttempts, &job.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoJobAvailable
		}
		return nil, fmt.Errorf("query claimable job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'CLAIMED', claimed_at = now(), claimed_by = $2,
		    attempts = attempts + 1, updated_at = now()
		WHERE id = $1`,
		job.ID, q.claimedBy); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	job.Attempts++
	return &job, nil
}

// Complete marks a job as done, removing it from future claim contention.
func (q *Queue) Complete(ctx context.Context, jobID int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'COMPLETED', updated_at = now() WHERE id = $1`,
		jobID)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", jobID, err)
	}
	return nil
}

// Fail records a processing error. If the job has attempts remaining it is
// requeued as PENDING after a backoff delay; otherwise it is parked FAILED.
func (q *Queue) Fail(ctx context.Context, job *Job, cause error, backoff time.Duration) error {
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}

	if job.Attempts >= job.MaxAttempts {
		_, err := q.db.ExecContext(ctx, `
			UPDATE jobs SET status = 'FAILED', last_error = $2, updated_at = now()
			WHERE id = $1`,
			job.ID, errMsg)
		if err != nil {
			return fmt.Errorf("park failed job %d: %w", job.ID, err)
		}
		return nil
	}

	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'PENDING', last_error = $2, available_at = now() + $3::interval,
		    claimed_at = NULL, claimed_by = NULL, updated_at = now()
		WHERE id = $1`,
		job.ID, errMsg, fmt.Sprintf("%d milliseconds", backoff.Milliseconds()))
	if err != nil {
		return fmt.Errorf("requeue job %d: %w", job.ID, err)
	}
	return nil
}

// PendingCount returns the number of PENDING jobs available to claim now.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT count(*) FROM jobs
		WHERE queue_name = $1 AND status = 'PENDING' AND available_at <= now()`,
		q.name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return count, nil
}

// RecoverOrphans requeues CLAIMED jobs whose claim is older than threshold,
// covering workers that crashed mid-processing without failing the job.
func (q *Queue) RecoverOrphans(ctx context.Context, threshold time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'PENDING', claimed_at = NULL, claimed_by = NULL, updated_at = now()
		WHERE queue_name = $1 AND status = 'CLAIMED'
		  AND claimed_at < now() - $2::interval`,
		q.name, fmt.Sprintf("%d milliseconds", threshold.Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("recover orphaned jobs: %w", err)
	}
	return res.RowsAffected()
}

// Retain deletes terminal (COMPLETED/FAILED) jobs older than retention, so
// the jobs table doesn't grow unbounded.
func (q *Queue) Retain(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE queue_name = $1 AND status IN ('COMPLETED', 'FAILED')
		  AND updated_at < now() - $2::interval`,
		q.name, fmt.Sprintf("%d milliseconds", retention.Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("retain jobs: %w", err)
	}
	return res.RowsAffected()
}
