package runcreator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaflow/qaflow/pkg/models"
)

func TestMatchEnvironmentsSplitsMatchedAndSkipped(t *testing.T) {
	app1 := "app-1"
	envs := []*models.Environment{
		{ID: "e1", Type: models.TestTypeE2E, ApplicationID: &app1},
	}
	svc := &Service{}

	matched, skipped := svc.matchEnvironments([]*models.TestCase{
		{ID: "tc1", TestType: models.TestTypeE2E, ApplicationID: &app1},
		{ID: "tc2", TestType: models.TestTypeAPI, ApplicationID: &app1},
	}, envs)

	require.Len(t, matched, 1)
	assert.Equal(t, "tc1", matched[0].tc.ID)
	assert.Equal(t, "e1", matched[0].env.ID)
	require.Len(t, skipped, 1)
	assert.Equal(t, "tc2", skipped[0].ID)
}

func TestMatchByExecutionFindsByTestCaseID(t *testing.T) {
	matched := []envMatch{
		{tc: &models.TestCase{ID: "a"}, env: &models.Environment{ID: "e1"}},
		{tc: &models.TestCase{ID: "b"}, env: &models.Environment{ID: "e2"}},
	}
	got := matchByExecution(matched, "b")
	require.NotNil(t, got)
	assert.Equal(t, "e2", got.env.ID)

	assert.Nil(t, matchByExecution(matched, "missing"))
}

func TestIgnoreReasonNamesApplicationWhenScoped(t *testing.T) {
	app := "checkout"
	reason := ignoreReason(&models.TestCase{TestType: models.TestTypeE2E, ApplicationID: &app})
	assert.Contains(t, reason, "E2E")
	assert.Contains(t, reason, "checkout")
}

func TestIgnoreReasonFallsBackToAnyApplication(t *testing.T) {
	reason := ignoreReason(&models.TestCase{TestType: models.TestTypeAPI})
	assert.Contains(t, reason, "any application")
}

func TestDerefOrEmpty(t *testing.T) {
	assert.Equal(t, "", derefOrEmpty(nil))
	v := "x"
	assert.Equal(t, "x", derefOrEmpty(&v))
}
