package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/qaflow/qaflow/pkg/models"
)

// ExecutionStore persists Executions, one TestCase's run within a TestRun.
// Rows are never mutated once terminal (§3).
type ExecutionStore struct {
	db *sql.DB
}

// NewExecutionStore returns an ExecutionStore over db.
func NewExecutionStore(db *sql.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// Create inserts a new QUEUED Execution.
func (s *ExecutionStore) Create(ctx context.Context, e *models.Execution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions
		 (id, run_id, project_id, environment_id, test_case_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.RunID, e.ProjectID, e.EnvironmentID, e.TestCaseID, models.ExecutionStatusQueued)
	return mapError(err, "create execution")
}

// Get retrieves an Execution by ID.
func (s *ExecutionStore) Get(ctx context.Context, id string) (*models.Execution, error) {
	row := s.db.QueryRowContext(ctx, executionSelectSQL+` WHERE id = $1`, id)
	return scanExecution(row)
}

// SetAgentExecution stores the prepared plan (§4.7's output) before the
// browser runner (C8) dispatches it.
func (s *ExecutionStore) SetAgentExecution(ctx context.Context, id string, plan *models.AgentExecution) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal agent execution: %w", err)
	}
	return execOne(ctx, s.db, "set execution plan",
		`UPDATE executions SET agent_execution = $2 WHERE id = $1`, id, data)
}

// Start transitions an Execution to RUNNING and records started_at plus the
// initial heartbeat.
func (s *ExecutionStore) Start(ctx context.Context, id string) error {
	now := time.Now()
	return execOne(ctx, s.db, "start execution",
		`UPDATE executions SET status = $2, started_at = $3, last_heartbeat_at = $3
		 WHERE id = $1 AND status = $4`,
		id, models.ExecutionStatusRunning, now, models.ExecutionStatusQueued)
}

// Requeue transitions a stale RUNNING Execution back to QUEUED, clearing
// started_at and last_heartbeat_at so the run orchestrator (C12) picks it up
// for redispatch on its next pass, the same way a crashed claim is recovered
// at the job-queue layer.
func (s *ExecutionStore) Requeue(ctx context.Context, id string) error {
	return execOne(ctx, s.db, "requeue execution",
		`UPDATE executions SET status = $2, started_at = NULL, last_heartbeat_at = NULL
		 WHERE id = $1 AND status = $3`,
		id, models.ExecutionStatusQueued, models.ExecutionStatusRunning)
}

// Heartbeat refreshes last_heartbeat_at for a RUNNING Execution, the signal
// the orphan-recovery pass uses to distinguish a slow step from a crashed
// worker.
func (s *ExecutionStore) Heartbeat(ctx context.Context, id string) error {
	return execOne(ctx, s.db, "heartbeat execution",
		`UPDATE executions SET last_heartbeat_at = now() WHERE id = $1 AND status = $2`,
		id, models.ExecutionStatusRunning)
}

// FinishResult is the terminal outcome an Execution is finalized with.
type FinishResult struct {
	Status            models.ExecutionStatus
	VideoURL          *string
	ScreenshotURLs    []string
	StepLog           json.RawMessage
	ResultSummary     *string
	ErrorMessage      *string
	ExecutionMetadata json.RawMessage
	ReadableSteps     []string
}

// Finish records a terminal outcome for an Execution. Never called twice for
// the same Execution by design (§3: never mutated after terminal).
func (s *ExecutionStore) Finish(ctx context.Context, id string, r FinishResult) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`UPDATE executions
		 SET status = $2, finished_at = $3, duration_ms = EXTRACT(EPOCH FROM ($3 - started_at)) * 1000,
		     video_url = $4, screenshot_urls = $5, step_log = $6, result_summary = $7,
		     error_message = $8, execution_metadata = $9, readable_steps = $10
		 WHERE id = $1`,
		id, r.Status, now, r.VideoURL, pq.StringArray(r.ScreenshotURLs), r.StepLog,
		r.ResultSummary, r.ErrorMessage, r.ExecutionMetadata, pq.StringArray(r.ReadableSteps))
	return mapError(err, "finish execution")
}

// ListByRun returns every Execution belonging to runID.
func (s *ExecutionStore) ListByRun(ctx context.Context, runID string) ([]*models.Execution, error) {
	rows, err := s.db.QueryContext(ctx, executionSelectSQL+` WHERE run_id = $1 ORDER BY id ASC`, runID)
	if err != nil {
		return nil, mapError(err, "list executions by run")
	}
	defer rows.Close()

	var out []*models.Execution
	for rows.Next() {
		e, err := scanExecutionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindStaleRunning returns RUNNING Executions whose last heartbeat is older
// than threshold — the set the orphan-recovery pass
// (runorchestrator.Service.RecoverOrphans) requeues to QUEUED.
func (s *ExecutionStore) FindStaleRunning(ctx context.Context, threshold time.Duration) ([]*models.Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		executionSelectSQL+` WHERE status = $1 AND last_heartbeat_at < $2`,
		models.ExecutionStatusRunning, time.Now().Add(-threshold))
	if err != nil {
		return nil, mapError(err, "find stale executions")
	}
	defer rows.Close()

	var out []*models.Execution
	for rows.Next() {
		e, err := scanExecutionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const executionSelectSQL = `
	SELECT id, run_id, project_id, environment_id, test_case_id, status,
	       started_at, finished_at, duration_ms, video_url, screenshot_urls,
	       step_log, result_summary, error_message, execution_metadata,
	       readable_steps, agent_execution, last_heartbeat_at
	FROM executions`

func scanExecution(row scannable) (*models.Execution, error) {
	e, err := scanExecutionRow(row)
	if err != nil {
		return nil, mapError(err, "get execution")
	}
	return e, nil
}

func scanExecutionRow(row scannable) (*models.Execution, error) {
	var e models.Execution
	var durationMS sql.NullInt64
	var screenshots, readableSteps pq.StringArray
	var agentExecRaw []byte

	err := row.Scan(&e.ID, &e.RunID, &e.ProjectID, &e.EnvironmentID, &e.TestCaseID,
		&e.Status, &e.StartedAt, &e.FinishedAt, &durationMS, &e.VideoURL, &screenshots,
		&e.StepLog, &e.ResultSummary, &e.ErrorMessage, &e.ExecutionMetadata,
		&readableSteps, &agentExecRaw, &e.LastHeartbeatAt)
	if err != nil {
		return nil, err
	}

	if durationMS.Valid {
		d := time.Duration(durationMS.Int64) * time.Millisecond
		e.Duration = &d
	}
	e.ScreenshotURLs = []string(screenshots)
	e.ReadableSteps = []string(readableSteps)
	if len(agentExecRaw) > 0 {
		var plan models.AgentExecution
		if err := json.Unmarshal(agentExecRaw, &plan); err != nil {
			return nil, fmt.Errorf("unmarshal agent execution: %w", err)
		}
		e.AgentExecution = &plan
	}
	return &e, nil
}
