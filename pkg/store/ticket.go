package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qaflow/qaflow/pkg/models"
)

// TicketStore persists Tickets, the unit of work a TestCase is derived from.
type TicketStore struct {
	db *sql.DB
}

// NewTicketStore returns a TicketStore over db.
func NewTicketStore(db *sql.DB) *TicketStore {
	return &TicketStore{db: db}
}

// Create inserts a new Ticket.
func (s *TicketStore) Create(ctx context.Context, t *models.Ticket) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, project_id, title, status, primary_actor, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.ProjectID, t.Title, t.Status, t.PrimaryActor, t.CreatedAt, t.UpdatedAt)
	return mapError(err, "create ticket")
}

// Get retrieves a Ticket by ID.
func (s *TicketStore) Get(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, status, primary_actor, created_at, updated_at
		 FROM tickets WHERE id = $1`, id,
	).Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.PrimaryActor, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "get ticket")
	}
	return &t, nil
}

// ListReadyToTest returns every READY_TO_TEST Ticket for projectID — the
// set the run creator (C11) draws candidate TestCases from.
func (s *TicketStore) ListReadyToTest(ctx context.Context, projectID string) ([]*models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, title, status, primary_actor, created_at, updated_at
		 FROM tickets WHERE project_id = $1 AND status = $2
		 ORDER BY created_at ASC`,
		projectID, models.TicketStatusReadyToTest)
	if err != nil {
		return nil, mapError(err, "list ready-to-test tickets")
	}
	defer rows.Close()

	var out []*models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.PrimaryActor,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a Ticket's status.
func (s *TicketStore) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error {
	return execOne(ctx, s.db, "update ticket status",
		`UPDATE tickets SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
}
