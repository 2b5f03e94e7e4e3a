package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/qaflow/qaflow/pkg/models"
)

// TestCaseStore persists TestCases, the natural-language step sequences the
// pre-execution composer (C7) turns into runnable plans.
type TestCaseStore struct {
	db *sql.DB
}

// NewTestCaseStore returns a TestCaseStore over db.
func NewTestCaseStore(db *sql.DB) *TestCaseStore {
	return &TestCaseStore{db: db}
}

// Create inserts a new TestCase.
func (s *TestCaseStore) Create(ctx context.Context, tc *models.TestCase) error {
	dataReq, err := json.Marshal(tc.DataRequirement)
	if err != nil {
		return fmt.Errorf("marshal data requirement: %w", err)
	}
	steps, err := json.Marshal(tc.TestSteps)
	if err != nil {
		return fmt.Errorf("marshal test steps: %w", err)
	}
	if tc.TestSteps == nil {
		steps = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO test_cases
		 (id, project_id, ticket_id, application_id, title, priority, status,
		  ignore_reason, test_type, test_steps, expected_result, category,
		  data_condition, data_requirement, setup_hint, primary_actor,
		  created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		tc.ID, tc.ProjectID, tc.TicketID, tc.ApplicationID, tc.Title, tc.Priority,
		tc.Status, tc.IgnoreReason, tc.TestType, steps,
		tc.ExpectedResult, tc.Category, tc.DataCondition, dataReq, tc.SetupHint,
		tc.PrimaryActor, tc.CreatedAt, tc.UpdatedAt)
	return mapError(err, "create test case")
}

// Get retrieves a TestCase by ID.
func (s *TestCaseStore) Get(ctx context.Context, id string) (*models.TestCase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, ticket_id, application_id, title, priority, status,
		        ignore_reason, test_type, test_steps, expected_result, category,
		        data_condition, data_requirement, setup_hint, primary_actor,
		        created_at, updated_at
		 FROM test_cases WHERE id = $1`, id)
	return scanTestCase(row)
}

// ListExecutableForEnvironment returns READY TestCases with at least one step
// that are scoped to environment's application (or unscoped), the set the
// run creator (C11) schedules executions for (§3's executability invariant).
func (s *TestCaseStore) ListExecutableForEnvironment(ctx context.Context, projectID string, applicationID *string) ([]*models.TestCase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, ticket_id, application_id, title, priority, status,
		        ignore_reason, test_type, test_steps, expected_result, category,
		        data_condition, data_requirement, setup_hint, primary_actor,
		        created_at, updated_at
		 FROM test_cases
		 WHERE project_id = $1 AND status = $2
		   AND jsonb_array_length(test_steps) > 0
		   AND (application_id IS NULL OR application_id = $3)
		 ORDER BY created_at ASC`,
		projectID, models.TestCaseStatusReady, applicationID)
	if err != nil {
		return nil, mapError(err, "list executable test cases")
	}
	defer rows.Close()

	var out []*models.TestCase
	for rows.Next() {
		tc, err := scanTestCaseRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a TestCase's status.
func (s *TestCaseStore) UpdateStatus(ctx context.Context, id string, status models.TestCaseStatus, ignoreReason *string) error {
	return execOne(ctx, s.db, "update test case status",
		`UPDATE test_cases SET status = $2, ignore_reason = $3, updated_at = now() WHERE id = $1`,
		id, status, ignoreReason)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTestCase(row scannable) (*models.TestCase, error) {
	tc, err := scanTestCaseRow(row)
	if err != nil {
		return nil, mapError(err, "get test case")
	}
	return tc, nil
}

func scanTestCaseRow(row scannable) (*models.TestCase, error) {
	var tc models.TestCase
	var steps, dataReq []byte
	err := row.Scan(&tc.ID, &tc.ProjectID, &tc.TicketID, &tc.ApplicationID, &tc.Title,
		&tc.Priority, &tc.Status, &tc.IgnoreReason, &tc.TestType, &steps,
		&tc.ExpectedResult, &tc.Category, &tc.DataCondition, &dataReq, &tc.SetupHint,
		&tc.PrimaryActor, &tc.CreatedAt, &tc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &tc.TestSteps); err != nil {
			return nil, fmt.Errorf("unmarshal test steps: %w", err)
		}
	}
	if len(dataReq) > 0 {
		if err := json.Unmarshal(dataReq, &tc.DataRequirement); err != nil {
			return nil, fmt.Errorf("unmarshal data requirement: %w", err)
		}
	}
	return &tc, nil
}
