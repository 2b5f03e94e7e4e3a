// Package preexec implements the pre-execution service (C7, §4.7): it
// produces and persists the agent_execution plan for an Execution by
// composing data resolution (C3), the data orchestrator (C4), selector
// knowledge (C2), and assertion mapping (C5) — without ever invoking AI.
package preexec

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qaflow/qaflow/pkg/assertion"
	"github.com/qaflow/qaflow/pkg/config"
	"github.com/qaflow/qaflow/pkg/datares"
	"github.com/qaflow/qaflow/pkg/fixtures"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/selvalidate"
	"github.com/qaflow/qaflow/pkg/store"
)

// canonicalLoginText is the synthetic first step's text (§4.7 step 1); any
// user-authored step whose text exactly equals it is treated as the same
// login step and deduplicated rather than duplicated.
const canonicalLoginText = "Log in with valid credentials for the current environment."

// Service produces an agent_execution plan onto an Execution.
type Service struct {
	dataKnowledge *store.DataKnowledgeStore
	selectors     *store.SelectorKnowledgeStore
	fixtureClient *fixtures.Client
	fixtureCfg    *config.FixtureConfig
}

// NewService builds a Service over its collaborators.
func NewService(dk *store.DataKnowledgeStore, sk *store.SelectorKnowledgeStore, fc *fixtures.Client, fcfg *config.FixtureConfig) *Service {
	return &Service{dataKnowledge: dk, selectors: sk, fixtureClient: fc, fixtureCfg: fcfg}
}

// scopedCache is the execution-scoped "{applicationId}:{semanticKey} ->
// FOUND_IN_DB" cache §4.7 step 3 describes, keeping repeated semantic keys
// within one plan to a single DB call: once a key is looked up, its row (or
// its absence) is remembered for the rest of this plan.
type scopedCache map[string]*models.SelectorKnowledge

// Prepare executes §4.7's seven ordered steps and returns the resulting
// plan. It does not persist; callers write the result via
// store.ExecutionStore as the final, idempotent "Persist" step.
func (s *Service) Prepare(ctx context.Context, tc *models.TestCase, env *models.Environment, applicationID string, existing *models.AgentExecution) (*models.AgentExecution, error) {
	steps := effectiveSteps(tc, env)

	vars := map[string]string{}

	if tc.DataCondition != "" && tc.DataCondition != models.DataConditionNone {
		if err := s.fixtureClient.Satisfy(ctx, defaultFixtureEntity(tc), tc.DataCondition, vars); err != nil {
			return nil, err
		}
	}

	if len(tc.DataRequirement) > 0 {
		resolved, err := datares.Resolve(ctx, s.dataKnowledge, tc.ProjectID, tc.DataRequirement)
		if err != nil {
			return nil, err
		}
		for k, v := range resolved.Flattened {
			vars[k] = v
		}
		ctx = context.WithValue(ctx, resolvedKey{}, resolved)
	}

	cache := scopedCache{}
	plan := make([]models.AgentExecutionStep, len(steps))
	for i, text := range steps {
		step, err := s.prepareStep(ctx, i, text, tc, applicationID, cache, existing)
		if err != nil {
			return nil, err
		}
		plan[i] = step
	}

	repairNavigation(plan)

	if tc.ExpectedResult != nil && len(plan) > 0 {
		mapped := assertion.Map(*tc.ExpectedResult)
		last := &plan[len(plan)-1]
		last.Assertion = &models.Assertion{Type: models.AssertionType(mapped.Type), Value: mapped.Value}
	}

	resolved, _ := ctx.Value(resolvedKey{}).(*datares.Resolved)
	if err := interpolatePlan(plan, resolved); err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("marshal data snapshot: %w", err)
	}

	return &models.AgentExecution{Steps: plan, DataSnapshot: snapshot}, nil
}

type resolvedKey struct{}

// effectiveSteps prepends the synthetic login step per §4.7 step 1,
// guaranteeing exactly one login step at index 0, and deduplicates any
// user step matching the canonical login sentence.
func effectiveSteps(tc *models.TestCase, env *models.Environment) []string {
	needsLogin := tc.TestType == models.TestTypeE2E &&
		(env.E2EAuthMode == models.E2EAuthModeAlways || env.E2EAuthMode == models.E2EAuthModeConditional)

	var filtered []string
	for _, s := range tc.TestSteps {
		if strings.TrimSpace(s) == canonicalLoginText {
			continue
		}
		filtered = append(filtered, s)
	}

	if !needsLogin {
		return tc.TestSteps
	}
	return append([]string{canonicalLoginText}, filtered...)
}

func defaultFixtureEntity(tc *models.TestCase) string {
	if tc.Category != nil {
		return *tc.Category
	}
	return "DEFAULT"
}

var semanticKeySanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	slug := semanticKeySanitizeRe.ReplaceAllString(lower, "_")
	return strings.Trim(slug, "_")
}

func (s *Service) prepareStep(ctx context.Context, index int, text string, tc *models.TestCase, applicationID string, cache scopedCache, existing *models.AgentExecution) (models.AgentExecutionStep, error) {
	var action models.StepAction
	var semanticKey string

	if index == 0 && text == canonicalLoginText {
		action = models.StepActionLogin
		semanticKey = "perform_login"
	} else {
		action = inferAction(text)
		semanticKey = fmt.Sprintf("%s_%s", action, slugify(text))
	}

	step := models.AgentExecutionStep{
		StepIndex:        index,
		SemanticKey:      semanticKey,
		Action:           action,
		StepText:         text,
		ResolutionStatus: models.ResolutionStatusUnresolved,
	}

	if preserved := findPreservedResolved(existing, semanticKey); preserved != nil {
		if action != models.StepActionLogin || index == 0 {
			return *preserved, nil
		}
	}

	cacheKey := applicationID + ":" + semanticKey
	sk, cached := cache[cacheKey]
	if !cached {
		found, err := s.selectors.Find(ctx, applicationID, semanticKey)
		if err == nil {
			sk = found
		}
		cache[cacheKey] = sk // nil on miss, remembered for the rest of this plan
	}

	if sk == nil {
		step.ResolutionStatus = models.ResolutionStatusPendingRuntime
		return step, nil
	}

	if action == models.StepActionFill && selvalidate.IsBodySelector(sk.Selector) {
		step.ResolutionStatus = models.ResolutionStatusPendingRuntime
		return step, nil
	}

	resolved := sk.Selector
	step.ResolvedSelector = &resolved
	step.ResolutionStatus = models.ResolutionStatusResolved
	step.ResolvedFrom = models.ResolvedFromKnowledge
	step.LastVerifiedAt = &sk.LastVerifiedAt

	if !cached {
		if err := s.selectors.Upsert(ctx, &models.SelectorKnowledge{
			ID: sk.ID, ProjectID: sk.ProjectID, ApplicationID: sk.ApplicationID,
			SemanticKey: sk.SemanticKey, Selector: sk.Selector,
			ConfidenceScore: sk.ConfidenceScore, UsageCount: sk.UsageCount, LastVerifiedAt: time.Now().UTC(),
		}); err != nil {
			return step, err
		}
	}
	return step, nil
}

func findPreservedResolved(existing *models.AgentExecution, semanticKey string) *models.AgentExecutionStep {
	if existing == nil {
		return nil
	}
	for _, s := range existing.Steps {
		if s.SemanticKey == semanticKey && s.ResolutionStatus == models.ResolutionStatusResolved {
			cp := s
			return &cp
		}
	}
	return nil
}

var keywordActions = []struct {
	keywords []string
	action   models.StepAction
}{
	{[]string{"click", "press", "submit"}, models.StepActionClick},
	{[]string{"fill", "type", "enter"}, models.StepActionFill},
	{[]string{"select"}, models.StepActionSelect},
	{[]string{"navigate", "go to", "open"}, models.StepActionNavigate},
	{[]string{"visible", "displayed"}, models.StepActionAssertVisible},
	{[]string{"redirect", "url"}, models.StepActionAssertURL},
	{[]string{"contain", "text"}, models.StepActionAssertText},
	{[]string{"hover"}, models.StepActionHover},
	{[]string{"wait"}, models.StepActionWait},
}

// inferAction applies §4.7.1's lowercase keyword match, first hit wins.
func inferAction(text string) models.StepAction {
	lower := strings.ToLower(text)
	for _, ka := range keywordActions {
		for _, kw := range ka.keywords {
			if strings.Contains(lower, kw) {
				return ka.action
			}
		}
	}
	return models.StepActionClick
}

var absoluteURLRe = regexp.MustCompile(`https?://\S+`)

// repairNavigation applies §4.7 step 4: a navigate step keeps its action
// only when the step text or the resolved selector is itself an absolute
// URL; otherwise it is downgraded to click so the runner never calls
// navigation with a bare selector.
func repairNavigation(steps []models.AgentExecutionStep) {
	for i := range steps {
		step := &steps[i]
		if step.Action != models.StepActionNavigate {
			continue
		}
		if absoluteURLRe.MatchString(step.StepText) {
			continue
		}
		if step.ResolvedSelector != nil && absoluteURLRe.MatchString(*step.ResolvedSelector) {
			continue
		}
		step.Action = models.StepActionClick
	}
}

// interpolatePlan applies §4.7 step 6: placeholders are replaced in
// resolved_selector and assertion.value; for fill steps, a placeholder in
// the original step text is lifted into assertion.value typed fill_value.
func interpolatePlan(steps []models.AgentExecutionStep, resolved *datares.Resolved) error {
	if resolved == nil {
		return nil
	}

	for i := range steps {
		step := &steps[i]

		if step.ResolvedSelector != nil && datares.HasPlaceholder(*step.ResolvedSelector) {
			v, err := datares.Interpolate(*step.ResolvedSelector, resolved, step.StepIndex)
			if err != nil {
				return err
			}
			step.ResolvedSelector = &v
		}

		if step.Assertion != nil && datares.HasPlaceholder(step.Assertion.Value) {
			v, err := datares.Interpolate(step.Assertion.Value, resolved, step.StepIndex)
			if err != nil {
				return err
			}
			step.Assertion.Value = v
		}

		if step.Action == models.StepActionFill && datares.HasPlaceholder(step.StepText) {
			v, err := datares.Interpolate(step.StepText, resolved, step.StepIndex)
			if err != nil {
				return err
			}
			step.Assertion = &models.Assertion{Type: models.AssertionFillValue, Value: v}
		}
	}
	return nil
}

// Marshal renders the plan for persistence onto Execution.AgentExecution.
func Marshal(ae *models.AgentExecution) (json.RawMessage, error) {
	return json.Marshal(ae)
}

// NewExecutionID generates a fresh id for a dispatched Execution.
func NewExecutionID() string {
	return uuid.NewString()
}
