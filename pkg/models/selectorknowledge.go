package models

import "time"

// SelectorKnowledge is the learned map from semantic key to a concrete
// locator for a given application. Uniqueness: (projectID, applicationID,
// semanticKey).
type SelectorKnowledge struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	ApplicationID   string    `json:"application_id"`
	SemanticKey     string    `json:"semantic_key"`
	Selector        string    `json:"selector"`
	ConfidenceScore float64   `json:"confidence_score"`
	UsageCount      int       `json:"usage_count"`
	LastVerifiedAt  time.Time `json:"last_verified_at"`
}
