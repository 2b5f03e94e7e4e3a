package models

import "time"

// Credential is one named login for an E2E Environment.
type Credential struct {
	Role     string `json:"role,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Environment is a deployed target a Schedule drives TestCases against.
// Secrets (Password fields, AppKey, SecretKey, APIToken) are stored
// encrypted at rest; only pkg/secrets may decrypt them, and only for the
// duration of a single dispatched Execution (§9).
type Environment struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id"`
	ApplicationID  *string      `json:"application_id,omitempty"`
	BaseURL        string       `json:"base_url"`
	Type           TestType     `json:"type"`
	IsActive       bool         `json:"is_active"`
	APIAuthMode    APIAuthMode  `json:"api_auth_mode"`
	E2EAuthMode    E2EAuthMode  `json:"e2e_auth_mode"`
	Credentials    []Credential `json:"credentials"`
	AppKeyEnc      []byte       `json:"-"`
	SecretKeyEnc   []byte       `json:"-"`
	APITokenEnc    []byte       `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}

// MatchesApplication reports whether the environment is usable for a test
// case scoped to applicationID (or unscoped, when applicationID is nil).
func (e *Environment) MatchesApplication(applicationID *string) bool {
	if applicationID == nil {
		return true
	}
	return e.ApplicationID != nil && *e.ApplicationID == *applicationID
}
