package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/qerrors"
)

// TestRunStore persists TestRuns. The database enforces the single-active-
// run invariant (§8 invariant 1) via a partial unique index on
// (project_id) WHERE status = 'RUNNING'; Start surfaces a violation of that
// index as qerrors.ErrAlreadyExists rather than letting the caller
// re-derive it from a raw constraint error.
type TestRunStore struct {
	db *sql.DB
}

// NewTestRunStore returns a TestRunStore over db.
func NewTestRunStore(db *sql.DB) *TestRunStore {
	return &TestRunStore{db: db}
}

// Start inserts a new RUNNING TestRun for projectID. Returns
// qerrors.ErrAlreadyExists if a RUNNING run already exists for the project.
func (s *TestRunStore) Start(ctx context.Context, run *models.TestRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO test_runs (id, project_id, status, started_at)
		 VALUES ($1, $2, $3, $4)`,
		run.ID, run.ProjectID, models.TestRunStatusRunning, run.StartedAt)
	return mapError(err, "start test run")
}

// Complete marks a TestRun COMPLETED.
func (s *TestRunStore) Complete(ctx context.Context, id string, completedAt time.Time) error {
	return execOne(ctx, s.db, "complete test run",
		`UPDATE test_runs SET status = $2, completed_at = $3 WHERE id = $1 AND status = $4`,
		id, models.TestRunStatusCompleted, completedAt, models.TestRunStatusRunning)
}

// GetRunning returns the currently RUNNING TestRun for projectID, or
// qerrors.ErrNoRunningRun if none exists.
func (s *TestRunStore) GetRunning(ctx context.Context, projectID string) (*models.TestRun, error) {
	var run models.TestRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, status, started_at, completed_at
		 FROM test_runs WHERE project_id = $1 AND status = $2`,
		projectID, models.TestRunStatusRunning,
	).Scan(&run.ID, &run.ProjectID, &run.Status, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, qerrors.ErrNoRunningRun
		}
		return nil, mapError(err, "get running test run")
	}
	return &run, nil
}

// ListRunning returns every RUNNING TestRun across all projects, ordered by
// startedAt ascending (§4.4: the orchestrator processes the oldest running
// run first).
func (s *TestRunStore) ListRunning(ctx context.Context) ([]*models.TestRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, status, started_at, completed_at
		 FROM test_runs WHERE status = $1 ORDER BY started_at ASC`,
		models.TestRunStatusRunning)
	if err != nil {
		return nil, mapError(err, "list running test runs")
	}
	defer rows.Close()

	var runs []*models.TestRun
	for rows.Next() {
		var run models.TestRun
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Status, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, mapError(err, "scan running test run")
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list running test runs")
	}
	return runs, nil
}

// Get retrieves a TestRun by ID.
func (s *TestRunStore) Get(ctx context.Context, id string) (*models.TestRun, error) {
	var run models.TestRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, status, started_at, completed_at FROM test_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.ProjectID, &run.Status, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, mapError(err, "get test run")
	}
	return &run, nil
}
