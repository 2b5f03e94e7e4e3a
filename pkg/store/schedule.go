package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/qaflow/qaflow/pkg/models"
)

// ScheduleStore persists Schedules, the cron-driven trigger for the run
// creator (C11).
type ScheduleStore struct {
	db *sql.DB
}

// NewScheduleStore returns a ScheduleStore over db.
func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// Create inserts a new Schedule.
func (s *ScheduleStore) Create(ctx context.Context, sc *models.Schedule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules
		 (id, project_id, environment_ids, cron_expression, concurrency_limit,
		  is_active, last_run_at, next_run_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		sc.ID, sc.ProjectID, idArray(sc.EnvironmentIDs), sc.CronExpression,
		sc.ConcurrencyLimit, sc.IsActive, sc.LastRunAt, sc.NextRunAt)
	return mapError(err, "create schedule")
}

// ListDue returns active Schedules whose next_run_at has arrived — the run
// creator's (C11) selection set. Rows are not locked here; the run creator
// reads them once per claimed create_test_run job.
func (s *ScheduleStore) ListDue(ctx context.Context, asOf time.Time) ([]*models.Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, environment_ids, cron_expression, concurrency_limit,
		        is_active, last_run_at, next_run_at
		 FROM schedules WHERE is_active = true AND next_run_at <= $1
		 ORDER BY next_run_at ASC`, asOf)
	if err != nil {
		return nil, mapError(err, "list due schedules")
	}
	defer rows.Close()

	var out []*models.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// GetByProject returns a Schedule owned by projectID (§4.4 reads
// schedule.concurrencyLimit for the dispatch bound of the project's sole
// RUNNING TestRun). The schema does not limit a project to one Schedule;
// when several exist, which one is returned is not defined.
func (s *ScheduleStore) GetByProject(ctx context.Context, projectID string) (*models.Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, environment_ids, cron_expression, concurrency_limit,
		        is_active, last_run_at, next_run_at
		 FROM schedules WHERE project_id = $1`, projectID)
	sc, err := scanSchedule(row)
	if err != nil {
		return nil, mapError(err, "get schedule by project")
	}
	return sc, nil
}

// AdvanceNextRun atomically moves a Schedule's next_run_at forward after the
// run creator (C11) has processed it, recording the time it fired as
// last_run_at.
func (s *ScheduleStore) AdvanceNextRun(ctx context.Context, id string, firedAt, nextRunAt time.Time) error {
	return execOne(ctx, s.db, "advance schedule next run",
		`UPDATE schedules SET last_run_at = $2, next_run_at = $3 WHERE id = $1`,
		id, firedAt, nextRunAt)
}

func scanSchedule(row scannable) (*models.Schedule, error) {
	var sc models.Schedule
	var envIDs pq.StringArray
	err := row.Scan(&sc.ID, &sc.ProjectID, &envIDs, &sc.CronExpression,
		&sc.ConcurrencyLimit, &sc.IsActive, &sc.LastRunAt, &sc.NextRunAt)
	if err != nil {
		return nil, mapError(err, "scan schedule")
	}
	sc.EnvironmentIDs = []string(envIDs)
	return &sc, nil
}
