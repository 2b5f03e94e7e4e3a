package preexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaflow/qaflow/pkg/datares"
	"github.com/qaflow/qaflow/pkg/models"
)

func TestEffectiveStepsPrependsLoginExactlyOnce(t *testing.T) {
	tc := &models.TestCase{
		TestType:  models.TestTypeE2E,
		TestSteps: []string{"Fill in the email field", "Click submit"},
	}
	env := &models.Environment{E2EAuthMode: models.E2EAuthModeAlways}

	steps := effectiveSteps(tc, env)
	require.Len(t, steps, 3)
	assert.Equal(t, canonicalLoginText, steps[0])
}

func TestEffectiveStepsDeduplicatesExplicitLoginStep(t *testing.T) {
	tc := &models.TestCase{
		TestType:  models.TestTypeE2E,
		TestSteps: []string{canonicalLoginText, "Click submit"},
	}
	env := &models.Environment{E2EAuthMode: models.E2EAuthModeConditional}

	steps := effectiveSteps(tc, env)
	require.Len(t, steps, 2)
	assert.Equal(t, canonicalLoginText, steps[0])
	assert.Equal(t, "Click submit", steps[1])
}

func TestEffectiveStepsSkipsLoginWhenNeverAuth(t *testing.T) {
	tc := &models.TestCase{TestType: models.TestTypeE2E, TestSteps: []string{"Click submit"}}
	env := &models.Environment{E2EAuthMode: models.E2EAuthModeNever}

	steps := effectiveSteps(tc, env)
	assert.Equal(t, []string{"Click submit"}, steps)
}

func TestInferActionFirstKeywordWins(t *testing.T) {
	assert.Equal(t, models.StepActionClick, inferAction("Click the submit button"))
	assert.Equal(t, models.StepActionFill, inferAction("Type the username"))
	assert.Equal(t, models.StepActionSelect, inferAction("Select a country"))
	assert.Equal(t, models.StepActionNavigate, inferAction("Navigate to the dashboard"))
	assert.Equal(t, models.StepActionAssertVisible, inferAction("Banner is visible"))
	assert.Equal(t, models.StepActionAssertURL, inferAction("User is redirected"))
	assert.Equal(t, models.StepActionAssertText, inferAction("Page contains summary"))
	assert.Equal(t, models.StepActionHover, inferAction("Hover over the menu"))
	assert.Equal(t, models.StepActionWait, inferAction("Wait for the spinner"))
	assert.Equal(t, models.StepActionClick, inferAction("Do something unusual"))
}

func TestRepairNavigationDowngradesWithoutAbsoluteURL(t *testing.T) {
	selector := "a.home-link"
	steps := []models.AgentExecutionStep{
		{Action: models.StepActionNavigate, StepText: "Go to the homepage", ResolvedSelector: &selector},
	}
	repairNavigation(steps)
	assert.Equal(t, models.StepActionClick, steps[0].Action)
}

func TestRepairNavigationKeepsActionWithAbsoluteURLInText(t *testing.T) {
	steps := []models.AgentExecutionStep{
		{Action: models.StepActionNavigate, StepText: "Navigate to https://example.com/dashboard"},
	}
	repairNavigation(steps)
	assert.Equal(t, models.StepActionNavigate, steps[0].Action)
}

func TestRepairNavigationKeepsActionWithAbsoluteURLSelector(t *testing.T) {
	selector := "https://example.com/dashboard"
	steps := []models.AgentExecutionStep{
		{Action: models.StepActionNavigate, StepText: "Go to dashboard", ResolvedSelector: &selector},
	}
	repairNavigation(steps)
	assert.Equal(t, models.StepActionNavigate, steps[0].Action)
}

func TestInterpolatePlanLiftsFillPlaceholderIntoAssertion(t *testing.T) {
	resolved := &datares.Resolved{ByAlias: map[string]any{"user": map[string]any{"email": "a@b.com"}}}
	steps := []models.AgentExecutionStep{
		{StepIndex: 0, Action: models.StepActionFill, StepText: "Enter {{user.email}}"},
	}

	require.NoError(t, interpolatePlan(steps, resolved))
	require.NotNil(t, steps[0].Assertion)
	assert.Equal(t, models.AssertionFillValue, steps[0].Assertion.Type)
	assert.Equal(t, "Enter a@b.com", steps[0].Assertion.Value)
}

func TestInterpolatePlanReplacesResolvedSelectorPlaceholder(t *testing.T) {
	resolved := &datares.Resolved{ByAlias: map[string]any{"entity": map[string]any{"id": "42"}}}
	selector := "#row-{{entity.id}}"
	steps := []models.AgentExecutionStep{
		{StepIndex: 1, Action: models.StepActionClick, ResolvedSelector: &selector},
	}

	require.NoError(t, interpolatePlan(steps, resolved))
	assert.Equal(t, "#row-42", *steps[0].ResolvedSelector)
}

func TestInterpolatePlanFailsWithStepIndexMessage(t *testing.T) {
	resolved := &datares.Resolved{ByAlias: map[string]any{}}
	selector := "#row-{{entity.id}}"
	steps := []models.AgentExecutionStep{
		{StepIndex: 3, Action: models.StepActionClick, ResolvedSelector: &selector},
	}

	err := interpolatePlan(steps, resolved)
	assert.EqualError(t, err, "Placeholder resolution failed for step 3")
}

func TestSlugifyNormalizesToLowerSnakeCase(t *testing.T) {
	assert.Equal(t, "click_the_submit_button", slugify("Click the Submit Button!"))
}
