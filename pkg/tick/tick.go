// Package tick implements the scheduler tick worker (C10, §4.2): on a fixed
// interval it emits exactly one `create_test_run` job and one `orchestrator`
// job, guaranteeing at most one repeatable timer per deployment via a
// session-scoped Postgres advisory lock (the queue substrate has no native
// repeatable-job primitive, so a distributed lock keyed by queue name
// elects a single holder, per §4.2).
package tick

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/qaflow/qaflow/pkg/jobqueue"
)

// tickLockKey is the Postgres advisory lock key electing this deployment's
// single tick holder. Arbitrary but fixed, so every replica contends for
// the same lock.
const tickLockKey = 72714200

type enqueuer interface {
	Enqueue(ctx context.Context, payload any, idempotencyKey string, maxAttempts int) error
}

// Service fires the tick. One Service runs per worker process; only the
// replica holding the advisory lock actually ticks.
type Service struct {
	db           *sql.DB
	createQueue  enqueuer
	orchQueue    enqueuer
	interval     time.Duration
	retryBackoff time.Duration
}

// NewService builds a Service over db, emitting ticks every interval.
func NewService(db *sql.DB, interval time.Duration) *Service {
	return &Service{
		db:           db,
		createQueue:  jobqueue.New(db, "create_test_run", "tick"),
		orchQueue:    jobqueue.New(db, "orchestrator", "tick"),
		interval:     interval,
		retryBackoff: interval,
	}
}

// Run blocks until ctx is cancelled, repeatedly attempting to become the
// single tick holder and, once holding the lock, firing ticks on interval.
func (s *Service) Run(ctx context.Context) error {
	for {
		held, err := s.tryHoldAndTick(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if held {
			// The lock connection was lost (not cancellation); retry acquiring
			// it immediately, another replica may now be eligible too.
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryBackoff):
		}
	}
}

// tryHoldAndTick attempts to acquire the advisory lock on a dedicated
// connection and, if successful, ticks until the connection drops or ctx is
// cancelled. Returns held=true if the lock was acquired at all (even if
// since lost), so the caller can distinguish "never got the lock" from
// "had it, then lost it."
func (s *Service) tryHoldAndTick(ctx context.Context) (held bool, err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, tickLockKey).Scan(&acquired); err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	slog.Info("tick: acquired scheduler tick lock, becoming holder")

	s.runAsHolder(ctx, conn)
	return true, nil
}

func (s *Service) runAsHolder(ctx context.Context, conn *sql.Conn) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.PingContext(ctx); err != nil {
				slog.Warn("tick: advisory lock connection lost, relinquishing holder role", "error", err)
				return
			}
			s.fireTick(ctx)
		}
	}
}

// fireTick emits exactly the two jobs §4.2 specifies. Both downstream
// queues are idempotent with respect to the state they observe, so a
// coalesced or doubled tick never causes catch-up runs.
func (s *Service) fireTick(ctx context.Context) {
	if err := s.createQueue.Enqueue(ctx, struct{}{}, "", 1); err != nil {
		slog.Error("tick: enqueue create_test_run failed", "error", err)
	}
	if err := s.orchQueue.Enqueue(ctx, struct{}{}, "", 1); err != nil {
		slog.Error("tick: enqueue orchestrator failed", "error", err)
	}
}
