package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/qaflow/qaflow/pkg/models"
)

// EnvironmentStore persists Environments, the deployed targets a Schedule
// drives TestCases against (§4.11). Secret fields are stored pre-encrypted
// by the caller (pkg/secrets); this store never sees plaintext.
type EnvironmentStore struct {
	db *sql.DB
}

// NewEnvironmentStore returns an EnvironmentStore over db.
func NewEnvironmentStore(db *sql.DB) *EnvironmentStore {
	return &EnvironmentStore{db: db}
}

// Create inserts a new Environment.
func (s *EnvironmentStore) Create(ctx context.Context, e *models.Environment) error {
	creds, err := json.Marshal(e.Credentials)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO environments
		 (id, project_id, application_id, base_url, type, is_active,
		  api_auth_mode, e2e_auth_mode, credentials, app_key_enc, secret_key_enc,
		  api_token_enc, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.ProjectID, e.ApplicationID, e.BaseURL, e.Type, e.IsActive,
		e.APIAuthMode, e.E2EAuthMode, creds, e.AppKeyEnc, e.SecretKeyEnc,
		e.APITokenEnc, e.CreatedAt)
	return mapError(err, "create environment")
}

// Get retrieves an Environment by ID.
func (s *EnvironmentStore) Get(ctx context.Context, id string) (*models.Environment, error) {
	var e models.Environment
	var creds []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, application_id, base_url, type, is_active,
		        api_auth_mode, e2e_auth_mode, credentials, app_key_enc,
		        secret_key_enc, api_token_enc, created_at
		 FROM environments WHERE id = $1`, id,
	).Scan(&e.ID, &e.ProjectID, &e.ApplicationID, &e.BaseURL, &e.Type, &e.IsActive,
		&e.APIAuthMode, &e.E2EAuthMode, &creds, &e.AppKeyEnc, &e.SecretKeyEnc,
		&e.APITokenEnc, &e.CreatedAt)
	if err != nil {
		return nil, mapError(err, "get environment")
	}
	if err := json.Unmarshal(creds, &e.Credentials); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}
	return &e, nil
}

// ListActiveForSchedule returns active Environments matching ids, the set a
// Schedule binds to (§4.11's environment-binding resolution).
func (s *EnvironmentStore) ListActiveForSchedule(ctx context.Context, ids []string) ([]*models.Environment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, application_id, base_url, type, is_active,
		        api_auth_mode, e2e_auth_mode, credentials, app_key_enc,
		        secret_key_enc, api_token_enc, created_at
		 FROM environments WHERE id = ANY($1) AND is_active = true`,
		idArray(ids))
	if err != nil {
		return nil, mapError(err, "list environments for schedule")
	}
	defer rows.Close()

	var out []*models.Environment
	for rows.Next() {
		var e models.Environment
		var creds []byte
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.ApplicationID, &e.BaseURL, &e.Type,
			&e.IsActive, &e.APIAuthMode, &e.E2EAuthMode, &creds, &e.AppKeyEnc,
			&e.SecretKeyEnc, &e.APITokenEnc, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan environment: %w", err)
		}
		if err := json.Unmarshal(creds, &e.Credentials); err != nil {
			return nil, fmt.Errorf("unmarshal credentials: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
