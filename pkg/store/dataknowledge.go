package store

import (
	"context"
	"database/sql"

	"github.com/qaflow/qaflow/pkg/models"
)

// DataKnowledgeStore persists DataKnowledge rows, resolvable by
// (projectID, type, scenario, role) — the lookup key the data resolver (C3)
// uses to satisfy a TestCase's data requirements.
type DataKnowledgeStore struct {
	db *sql.DB
}

// NewDataKnowledgeStore returns a DataKnowledgeStore over db.
func NewDataKnowledgeStore(db *sql.DB) *DataKnowledgeStore {
	return &DataKnowledgeStore{db: db}
}

// Upsert inserts a DataKnowledge row, or updates Value/Source/Verified in
// place when one already exists for the same (project_id, key, type,
// scenario, role) — the resolver's write path for both fixture-sourced and
// AI-simulated data.
func (s *DataKnowledgeStore) Upsert(ctx context.Context, dk *models.DataKnowledge) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO data_knowledge
		 (id, project_id, key, type, scenario, role, value, source, verified,
		  previously_passed, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (project_id, key, type, scenario, role)
		 DO UPDATE SET value = EXCLUDED.value, source = EXCLUDED.source,
		               verified = EXCLUDED.verified,
		               previously_passed = EXCLUDED.previously_passed,
		               updated_at = now()`,
		dk.ID, dk.ProjectID, dk.Key, dk.Type, dk.Scenario, dk.Role, dk.Value,
		dk.Source, dk.Verified, dk.PreviouslyPassed, dk.CreatedAt, dk.UpdatedAt)
	return mapError(err, "upsert data knowledge")
}

// Find looks up a DataKnowledge row by its resolution key
// (projectID, type, scenario, role) per §4.5. Multiple rows with different
// keys can satisfy the same resolution key (the table's uniqueness is the
// finer-grained (project_id, key, type, scenario, role)); §4.5's
// deterministic tiebreak — most recently updated — picks among them.
// Returns qerrors.ErrNotFound when none exists.
func (s *DataKnowledgeStore) Find(ctx context.Context, projectID, dataType string, scenario models.DataScenario, role *string) (*models.DataKnowledge, error) {
	var dk models.DataKnowledge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, key, type, scenario, role, value, source,
		        verified, previously_passed, created_at, updated_at
		 FROM data_knowledge
		 WHERE project_id = $1 AND type = $2 AND scenario = $3
		   AND role IS NOT DISTINCT FROM $4
		 ORDER BY updated_at DESC LIMIT 1`,
		projectID, dataType, scenario, role,
	).Scan(&dk.ID, &dk.ProjectID, &dk.Key, &dk.Type, &dk.Scenario, &dk.Role,
		&dk.Value, &dk.Source, &dk.Verified, &dk.PreviouslyPassed, &dk.CreatedAt, &dk.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "find data knowledge")
	}
	return &dk, nil
}

// MarkVerification records whether a DataKnowledge row was confirmed or
// refuted by an execution outcome (§4.5's verified/previouslyPassed feedback
// loop).
func (s *DataKnowledgeStore) MarkVerification(ctx context.Context, id string, verified, previouslyPassed bool) error {
	return execOne(ctx, s.db, "mark data knowledge verification",
		`UPDATE data_knowledge SET verified = $2, previously_passed = $3, updated_at = now() WHERE id = $1`,
		id, verified, previouslyPassed)
}
