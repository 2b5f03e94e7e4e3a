package store

import (
	"context"
	"database/sql"

	"github.com/qaflow/qaflow/pkg/models"
)

// SelectorKnowledgeStore persists the learned map from semantic key to
// concrete locator for an Application — the selector cache the
// pre-execution service (C7) and browser runner (C8) read from and write
// back to.
type SelectorKnowledgeStore struct {
	db *sql.DB
}

// NewSelectorKnowledgeStore returns a SelectorKnowledgeStore over db.
func NewSelectorKnowledgeStore(db *sql.DB) *SelectorKnowledgeStore {
	return &SelectorKnowledgeStore{db: db}
}

// Find looks up the known selector for (applicationID, semanticKey).
func (s *SelectorKnowledgeStore) Find(ctx context.Context, applicationID, semanticKey string) (*models.SelectorKnowledge, error) {
	var sk models.SelectorKnowledge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, application_id, semantic_key, selector,
		        confidence_score, usage_count, last_verified_at
		 FROM selector_knowledge WHERE application_id = $1 AND semantic_key = $2`,
		applicationID, semanticKey,
	).Scan(&sk.ID, &sk.ProjectID, &sk.ApplicationID, &sk.SemanticKey, &sk.Selector,
		&sk.ConfidenceScore, &sk.UsageCount, &sk.LastVerifiedAt)
	if err != nil {
		return nil, mapError(err, "find selector knowledge")
	}
	return &sk, nil
}

// Upsert records a newly learned or re-verified selector, incrementing
// usage_count on conflict — the write path for both AI-resolved selectors
// (C6) and runtime fallback learning (C8).
func (s *SelectorKnowledgeStore) Upsert(ctx context.Context, sk *models.SelectorKnowledge) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO selector_knowledge
		 (id, project_id, application_id, semantic_key, selector, confidence_score,
		  usage_count, last_verified_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (application_id, semantic_key)
		 DO UPDATE SET selector = EXCLUDED.selector,
		               confidence_score = EXCLUDED.confidence_score,
		               usage_count = selector_knowledge.usage_count + 1,
		               last_verified_at = EXCLUDED.last_verified_at`,
		sk.ID, sk.ProjectID, sk.ApplicationID, sk.SemanticKey, sk.Selector,
		sk.ConfidenceScore, sk.UsageCount, sk.LastVerifiedAt)
	return mapError(err, "upsert selector knowledge")
}

// MarkBroken lowers a selector's confidence after a runtime failure, so
// future resolution prefers re-deriving it rather than trusting stale cache
// (§4.13's selector-health feedback loop).
func (s *SelectorKnowledgeStore) MarkBroken(ctx context.Context, applicationID, semanticKey string) error {
	return execOne(ctx, s.db, "mark selector knowledge broken",
		`UPDATE selector_knowledge SET confidence_score = 0
		 WHERE application_id = $1 AND semantic_key = $2`,
		applicationID, semanticKey)
}
