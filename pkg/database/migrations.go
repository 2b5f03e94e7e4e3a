package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes not expressed in the
// plain-SQL migrations, enabling efficient search over test case titles and
// ticket titles.
func CreateGINIndexes(ctx context.Context, db *stdsql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_test_cases_title_gin
		ON test_cases USING gin(to_tsvector('english', title))`)
	if err != nil {
		return fmt.Errorf("failed to create test_cases title GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_tickets_title_gin
		ON tickets USING gin(to_tsvector('english', title))`)
	if err != nil {
		return fmt.Errorf("failed to create tickets title GIN index: %w", err)
	}

	return nil
}
