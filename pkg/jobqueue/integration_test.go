package jobqueue

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/qaflow/qaflow/pkg/database"
)

// newTestDB starts a disposable Postgres container with the embedded
// migrations applied, giving tests a real "jobs" table to claim against.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := database.NewClient(ctx, database.Config{
		Host:            host,
		Port:            port.Int(),
		User:            "test",
		Password:        "test",
		Database:        "test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client.DB()
}

func awaitCondition(t *testing.T, timeout, interval time.Duration, msg string, condition func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out: %s", msg)
		default:
			if condition() {
				return
			}
			time.Sleep(interval)
		}
	}
}

func TestQueueClaimIsForUpdateSkipLocked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	q := New(db, "test-queue", "test-pod")
	require.NoError(t, q.Enqueue(ctx, map[string]string{"foo": "bar"}, "", 3))

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.Attempts)

	_, err = q.Claim(ctx)
	assert.ErrorIs(t, err, ErrNoJobAvailable)
}

func TestQueueConcurrentClaimsDoNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	q := New(db, "concurrent-queue", "test-pod")
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, map[string]int{"n": i}, "", 3))
	}

	var mu sync.Mutex
	claimed := make([]int64, 0, 5)
	errCh := make(chan error, 5)
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			job, err := q.Claim(ctx)
			if err != nil {
				errCh <- fmt.Errorf("worker-%d: %w", workerID, err)
				return
			}
			mu.Lock()
			claimed = append(claimed, job.ID)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	assert.Len(t, claimed, 5)
	seen := make(map[int64]struct{})
	for _, id := range claimed {
		_, dup := seen[id]
		assert.False(t, dup, "job %d claimed twice", id)
		seen[id] = struct{}{}
	}
}

func TestQueueEnqueueIdempotencyKeyDedupes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	q := New(db, "idem-queue", "test-pod")
	require.NoError(t, q.Enqueue(ctx, map[string]string{"a": "1"}, "run-42", 3))
	require.NoError(t, q.Enqueue(ctx, map[string]string{"a": "2"}, "run-42", 3))

	count, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "second enqueue with same idempotency key should be a no-op")
}

func TestQueueFailRequeuesUntilMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	q := New(db, "retry-queue", "test-pod")
	require.NoError(t, q.Enqueue(ctx, map[string]string{}, "", 2))

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, job, fmt.Errorf("transient"), time.Millisecond))

	// job should be claimable again after backoff elapses
	var job2 *Job
	awaitCondition(t, 2*time.Second, 20*time.Millisecond, "job should be requeued", func() bool {
		j, err := q.Claim(ctx)
		if err != nil {
			return false
		}
		job2 = j
		return true
	})
	require.NotNil(t, job2)
	assert.Equal(t, 2, job2.Attempts)

	// second failure exhausts max attempts, job should be parked FAILED
	require.NoError(t, q.Fail(ctx, job2, fmt.Errorf("still failing"), time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	count, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "exhausted job should not be claimable again")
}

func TestQueueRecoverOrphans(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	q := New(db, "orphan-queue", "crashed-pod")
	require.NoError(t, q.Enqueue(ctx, map[string]string{}, "", 3))

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	// simulate a crashed worker: claimed_at is old
	_, err = db.ExecContext(ctx,
		`UPDATE jobs SET claimed_at = now() - interval '10 minutes' WHERE id = $1`, job.ID)
	require.NoError(t, err)

	n, err := q.RecoverOrphans(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// mockHandler counts processed jobs and can simulate failures.
type mockHandler struct {
	processed atomic.Int64
	failAll   bool
}

func (m *mockHandler) Handle(_ context.Context, _ *Job) error {
	m.processed.Add(1)
	if m.failAll {
		return fmt.Errorf("simulated handler failure")
	}
	return nil
}

func TestPoolEndToEndProcessesAllJobs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	q := New(db, "pool-e2e-queue", "test-pod")
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, map[string]int{"n": i}, "", 3))
	}

	handler := &mockHandler{}
	pool := NewPool(db, "pool-e2e-queue", "test-pod", handler, PoolConfig{
		WorkerCount:     2,
		PollInterval:    20 * time.Millisecond,
		RetryBackoff:    100 * time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
	})

	pool.Start(ctx)
	defer pool.Stop()

	awaitCondition(t, 5*time.Second, 50*time.Millisecond,
		"waiting for all jobs to be processed",
		func() bool { return handler.processed.Load() >= 5 })

	var completed int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM jobs WHERE queue_name = $1 AND status = 'COMPLETED'`,
		"pool-e2e-queue").Scan(&completed))
	assert.Equal(t, 5, completed)

	health := pool.Health(ctx)
	assert.True(t, health.DBReachable)
	assert.Equal(t, 2, health.TotalWorkers)
}
