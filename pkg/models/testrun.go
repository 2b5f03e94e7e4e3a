package models

import "time"

// TestRun is never deleted. Invariant: at most one RUNNING TestRun per
// Project at any time (§8 invariant 1).
type TestRun struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	Status      TestRunStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}
