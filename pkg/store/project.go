package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/qaflow/qaflow/pkg/models"
)

// ProjectStore persists Projects, the root of ownership for every other
// entity in the system.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore returns a ProjectStore over db.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Create inserts a new Project.
func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.CreatedAt)
	return mapError(err, "create project")
}

// Get retrieves a Project by ID.
func (s *ProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err, "get project")
	}
	return &p, nil
}

// List returns every Project, ordered by creation time.
func (s *ProjectStore) List(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, mapError(err, "list projects")
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ApplicationStore persists Applications, which scope TestCases and
// Environments (§4.11).
type ApplicationStore struct {
	db *sql.DB
}

// NewApplicationStore returns an ApplicationStore over db.
func NewApplicationStore(db *sql.DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

// Create inserts a new Application.
func (s *ApplicationStore) Create(ctx context.Context, a *models.Application) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, project_id, code, platform, test_types, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.ProjectID, a.Code, a.Platform, testTypesToArray(a.TestTypes), a.CreatedAt)
	return mapError(err, "create application")
}

// Get retrieves an Application by ID.
func (s *ApplicationStore) Get(ctx context.Context, id string) (*models.Application, error) {
	var a models.Application
	var testTypes pq.StringArray
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, code, platform, test_types, created_at
		 FROM applications WHERE id = $1`, id,
	).Scan(&a.ID, &a.ProjectID, &a.Code, &a.Platform, &testTypes, &a.CreatedAt)
	if err != nil {
		return nil, mapError(err, "get application")
	}
	a.TestTypes = arrayToTestTypes(testTypes)
	return &a, nil
}

// ListByProject returns every Application scoped to projectID.
func (s *ApplicationStore) ListByProject(ctx context.Context, projectID string) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, code, platform, test_types, created_at
		 FROM applications WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, mapError(err, "list applications")
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		var a models.Application
		var testTypes pq.StringArray
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Code, &a.Platform, &testTypes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		a.TestTypes = arrayToTestTypes(testTypes)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func testTypesToArray(types []models.TestType) pq.StringArray {
	out := make(pq.StringArray, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func arrayToTestTypes(arr pq.StringArray) []models.TestType {
	out := make([]models.TestType, len(arr))
	for i, s := range arr {
		out[i] = models.TestType(s)
	}
	return out
}
