package models

import "time"

// Schedule drives the Run Creator. nextRunAt is always derived from
// cronExpression; on tick advancement both fields are updated atomically.
type Schedule struct {
	ID                string     `json:"id"`
	ProjectID         string     `json:"project_id"`
	EnvironmentIDs    []string   `json:"environment_ids"`
	CronExpression    string     `json:"cron_expression"`
	ConcurrencyLimit  *int       `json:"concurrency_limit,omitempty"`
	IsActive          bool       `json:"is_active"`
	LastRunAt         *time.Time `json:"last_run_at,omitempty"`
	NextRunAt         time.Time  `json:"next_run_at"`
}
