package models

import "time"

// DataRequirementItem is one entry of a TestCase's data_requirement list.
// Alias is unique per case and is the key placeholders (`{{alias.field}}`)
// resolve against.
type DataRequirementItem struct {
	Alias    string       `json:"alias"`
	Type     string       `json:"type"`
	Scenario DataScenario `json:"scenario"`
	Role     *string      `json:"role,omitempty"`
}

// TestCase is a sequence of natural-language steps plus an expected result.
// Only READY cases with non-empty TestSteps and a matching Environment are
// executable.
type TestCase struct {
	ID               string                `json:"id"`
	ProjectID        string                `json:"project_id"`
	TicketID         *string               `json:"ticket_id,omitempty"`
	ApplicationID    *string               `json:"application_id,omitempty"`
	Title            string                `json:"title"`
	Priority         string                `json:"priority"`
	Status           TestCaseStatus        `json:"status"`
	IgnoreReason     *string               `json:"ignore_reason,omitempty"`
	TestType         TestType              `json:"test_type"`
	TestSteps        []string              `json:"test_steps"`
	ExpectedResult   *string               `json:"expected_result,omitempty"`
	Category         *string               `json:"category,omitempty"`
	DataCondition    DataCondition         `json:"data_condition"`
	DataRequirement  []DataRequirementItem `json:"data_requirement"`
	SetupHint        *string               `json:"setup_hint,omitempty"`
	PrimaryActor     *string               `json:"primary_actor,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// IsExecutable reports whether the case is READY and has at least one step,
// per §3's "only READY with non-empty testSteps ... is executable" invariant.
func (t *TestCase) IsExecutable() bool {
	return t.Status == TestCaseStatusReady && len(t.TestSteps) > 0
}
