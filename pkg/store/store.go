// Package store is the persistence layer for every domain entity (§4.1-§4.2,
// §4.8, §4.10-§4.11). Each entity gets its own store type over a shared
// *sql.DB, following the one-service-per-entity shape the rest of this
// codebase uses, but built directly against database/sql + pgx instead of a
// generated ORM client.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/qaflow/qaflow/pkg/qerrors"
)

// idArray adapts a plain []string of IDs for use with Postgres's
// `= ANY($1)` against a TEXT[] parameter.
func idArray(ids []string) pq.StringArray {
	return pq.StringArray(ids)
}

const pgUniqueViolation = "23505"

// mapError translates driver-level errors into the package's sentinel
// errors, so callers never need to know this layer is backed by Postgres.
func mapError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return qerrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return qerrors.ErrAlreadyExists
	}
	return fmt.Errorf("%s: %w", action, err)
}

// execOne runs a statement expected to affect exactly one row, returning
// qerrors.ErrNotFound when it affects zero (the row didn't exist, or a
// conditional WHERE clause didn't match).
func execOne(ctx context.Context, db *sql.DB, action, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, action)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", action, err)
	}
	if n == 0 {
		return qerrors.ErrNotFound
	}
	return nil
}
