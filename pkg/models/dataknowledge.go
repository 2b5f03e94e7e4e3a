package models

import (
	"encoding/json"
	"time"
)

// DataKnowledge is a persisted structured test input, resolvable by
// (projectID, type, scenario, role). The table's unique key is (projectId,
// key, type, scenario, role), so several rows with different keys can share
// one resolution key, and a row with a NULL role never conflicts with
// another; DataKnowledgeStore.Find returns the most recently updated match.
type DataKnowledge struct {
	ID               string          `json:"id"`
	ProjectID        string          `json:"project_id"`
	Key              string          `json:"key"`
	Type             string          `json:"type"` // UPPER
	Scenario         DataScenario    `json:"scenario"`
	Role             *string         `json:"role,omitempty"` // UPPER
	Value            json.RawMessage `json:"value"`
	Source           DataSource      `json:"source"`
	Verified         *bool           `json:"verified,omitempty"`
	PreviouslyPassed *bool           `json:"previously_passed,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
