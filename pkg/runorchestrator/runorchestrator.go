// Package runorchestrator implements the run orchestrator (C12, §4.4):
// once per `orchestrator` job, it dispatches QUEUED Executions for every
// RUNNING TestRun subject to a concurrency bound, and finalizes a TestRun
// once every one of its Executions reaches a terminal state.
package runorchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qaflow/qaflow/pkg/envbind"
	"github.com/qaflow/qaflow/pkg/jobqueue"
	"github.com/qaflow/qaflow/pkg/metrics"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/qerrors"
	"github.com/qaflow/qaflow/pkg/secrets"
	"github.com/qaflow/qaflow/pkg/store"
)

// defaultScheduleConcurrencyLimit is the §4.4 fallback when a Schedule
// names no concurrencyLimit of its own.
const defaultScheduleConcurrencyLimit = 3

// DispatchPayload is the execution queue job body this package produces
// and the execution worker (C13) consumes.
type DispatchPayload struct {
	ExecutionID string `json:"execution_id"`
}

// Service runs the §4.4 algorithm against every RUNNING TestRun.
type Service struct {
	testRuns     *store.TestRunStore
	executions   *store.ExecutionStore
	testCases    *store.TestCaseStore
	environments *store.EnvironmentStore
	schedules    *store.ScheduleStore
	execQueue    *jobqueue.Queue
	box          *secrets.Box
	maxParallel  int
	maxAttempts  int
}

// NewService builds a Service. maxParallel is global.max_parallel_execution
// (§4.4); maxAttempts bounds retries for a dispatched execution job.
func NewService(
	testRuns *store.TestRunStore,
	executions *store.ExecutionStore,
	testCases *store.TestCaseStore,
	environments *store.EnvironmentStore,
	schedules *store.ScheduleStore,
	execQueue *jobqueue.Queue,
	box *secrets.Box,
	maxParallel, maxAttempts int,
) *Service {
	if maxParallel <= 0 {
		maxParallel = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Service{
		testRuns: testRuns, executions: executions, testCases: testCases,
		environments: environments, schedules: schedules, execQueue: execQueue,
		box: box, maxParallel: maxParallel, maxAttempts: maxAttempts,
	}
}

// Run processes every RUNNING TestRun, oldest first, independently — one
// run's error never blocks another's.
func (s *Service) Run(ctx context.Context) error {
	runs, err := s.testRuns.ListRunning(ctx)
	if err != nil {
		return err
	}
	for _, run := range runs {
		if err := s.processRun(ctx, run); err != nil {
			slog.Error("run orchestrator: processing run failed",
				"run_id", run.ID, "project_id", run.ProjectID, "error", err)
		}
	}
	return nil
}

// processRun implements §4.4's three-way branch: skip while anything is
// RUNNING, else dispatch a bounded batch of QUEUED work, else (nothing
// RUNNING or QUEUED) finalize the TestRun.
func (s *Service) processRun(ctx context.Context, run *models.TestRun) error {
	execs, err := s.executions.ListByRun(ctx, run.ID)
	if err != nil {
		return err
	}

	var running, queued []*models.Execution
	for _, e := range execs {
		switch e.Status {
		case models.ExecutionStatusRunning:
			running = append(running, e)
		case models.ExecutionStatusQueued:
			queued = append(queued, e)
		}
	}
	metrics.RunningExecutionsGauge.WithLabelValues(run.ProjectID).Set(float64(len(running)))
	metrics.QueuedExecutionsGauge.WithLabelValues(run.ProjectID).Set(float64(len(queued)))

	if len(running) > 0 {
		return nil
	}
	if len(queued) > 0 {
		return s.dispatchBatch(ctx, run, queued)
	}
	return s.finalize(ctx, run, execs)
}

// dispatchBatch selects min(schedule.concurrencyLimit ?? 3,
// global.max_parallel_execution, Q) Executions and dispatches each.
func (s *Service) dispatchBatch(ctx context.Context, run *models.TestRun, queued []*models.Execution) error {
	limit := defaultScheduleConcurrencyLimit
	sc, err := s.schedules.GetByProject(ctx, run.ProjectID)
	if err != nil && !errors.Is(err, qerrors.ErrNotFound) {
		return err
	}
	if sc != nil && sc.ConcurrencyLimit != nil {
		limit = *sc.ConcurrencyLimit
	}

	batch := minInt(minInt(limit, s.maxParallel), len(queued))
	for _, exec := range queued[:batch] {
		if err := s.dispatchOne(ctx, exec); err != nil {
			slog.Error("run orchestrator: dispatch execution failed", "execution_id", exec.ID, "error", err)
		}
	}
	return nil
}

// dispatchOne validates the target Environment's credentials decrypt
// cleanly, transitions the Execution to RUNNING, and enqueues it onto the
// execution queue keyed by its own ID so a re-dispatch attempt (e.g. after
// a crash between Start and Enqueue) is deduplicated rather than doubled.
// The decrypted plaintext here is used only for validation and discarded;
// the execution worker (C13) performs its own decrypt immediately before
// driving the browser, so the plaintext it holds never outlives that job
// (§9) and is never carried through this queue.
func (s *Service) dispatchOne(ctx context.Context, exec *models.Execution) error {
	env, err := s.environments.Get(ctx, exec.EnvironmentID)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	if _, err := envbind.Decrypt(s.box, env); err != nil {
		return fmt.Errorf("validate environment credentials: %w", err)
	}

	if err := s.executions.Start(ctx, exec.ID); err != nil {
		return fmt.Errorf("start execution: %w", err)
	}
	if err := s.execQueue.Enqueue(ctx, DispatchPayload{ExecutionID: exec.ID}, exec.ID, s.maxAttempts); err != nil {
		return fmt.Errorf("enqueue execution: %w", err)
	}
	metrics.ExecutionsDispatchedTotal.WithLabelValues(exec.ProjectID).Inc()
	return nil
}

// finalize propagates every terminal Execution's outcome onto its TestCase
// and marks the TestRun COMPLETED. Reached only when R==0 && Q==0, so every
// Execution here is already terminal by construction.
func (s *Service) finalize(ctx context.Context, run *models.TestRun, execs []*models.Execution) error {
	for _, e := range execs {
		if !e.Status.IsTerminal() {
			continue
		}
		tcStatus := models.TestCaseStatusFailed
		if e.Status == models.ExecutionStatusPassed {
			tcStatus = models.TestCaseStatusPassed
		}
		if err := s.testCases.UpdateStatus(ctx, e.TestCaseID, tcStatus, nil); err != nil {
			slog.Error("run orchestrator: propagate test case status failed",
				"test_case_id", e.TestCaseID, "error", err)
		}
	}

	if err := s.testRuns.Complete(ctx, run.ID, time.Now()); err != nil {
		return err
	}
	metrics.TestRunsCompletedTotal.WithLabelValues(run.ProjectID).Inc()
	return nil
}

// RecoverOrphans requeues RUNNING Executions whose heartbeat is older than
// threshold back to QUEUED. Without this, a crashed execution worker leaves
// its claimed Execution — and the TestRun that owns it — stuck RUNNING
// forever, since §4.4 has no invariant that ever re-dispatches a RUNNING
// Execution on its own.
func (s *Service) RecoverOrphans(ctx context.Context, threshold time.Duration) (int, error) {
	stale, err := s.executions.FindStaleRunning(ctx, threshold)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, e := range stale {
		if err := s.executions.Requeue(ctx, e.ID); err != nil {
			slog.Error("run orchestrator: requeue orphaned execution failed", "execution_id", e.ID, "error", err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		slog.Warn("run orchestrator: recovered orphaned executions", "count", recovered)
	}
	return recovered, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
