package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/qaflow/qaflow/pkg/database"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/qerrors"
)

func newTestDB(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := database.NewClient(ctx, database.Config{
		Host:            host,
		Port:            port.Int(),
		User:            "test",
		Password:        "test",
		Database:        "test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func seedProject(ctx context.Context, t *testing.T, ps *ProjectStore) *models.Project {
	t.Helper()
	p := &models.Project{ID: uuid.New().String(), Name: "Checkout", CreatedAt: time.Now()}
	require.NoError(t, ps.Create(ctx, p))
	return p
}

func TestTestRunStoreEnforcesSingleActiveRunPerProject(t *testing.T) {
	client := newTestDB(t)
	ctx := context.Background()

	ps := NewProjectStore(client.DB())
	rs := NewTestRunStore(client.DB())

	project := seedProject(ctx, t, ps)

	first := &models.TestRun{ID: uuid.New().String(), ProjectID: project.ID, StartedAt: time.Now()}
	require.NoError(t, rs.Start(ctx, first))

	second := &models.TestRun{ID: uuid.New().String(), ProjectID: project.ID, StartedAt: time.Now()}
	err := rs.Start(ctx, second)
	assert.ErrorIs(t, err, qerrors.ErrAlreadyExists)

	require.NoError(t, rs.Complete(ctx, first.ID, time.Now()))

	// now that the first run is terminal, a new RUNNING run is allowed
	third := &models.TestRun{ID: uuid.New().String(), ProjectID: project.ID, StartedAt: time.Now()}
	assert.NoError(t, rs.Start(ctx, third))
}

func TestTestRunStoreGetRunningReturnsSentinelWhenNone(t *testing.T) {
	client := newTestDB(t)
	ctx := context.Background()

	ps := NewProjectStore(client.DB())
	rs := NewTestRunStore(client.DB())
	project := seedProject(ctx, t, ps)

	_, err := rs.GetRunning(ctx, project.ID)
	assert.ErrorIs(t, err, qerrors.ErrNoRunningRun)
}

func TestDataKnowledgeUpsertIsIdempotentOnResolutionKey(t *testing.T) {
	client := newTestDB(t)
	ctx := context.Background()

	ps := NewProjectStore(client.DB())
	dks := NewDataKnowledgeStore(client.DB())
	project := seedProject(ctx, t, ps)

	role := "ADMIN"
	dk := &models.DataKnowledge{
		ID: uuid.New().String(), ProjectID: project.ID, Key: "seed", Type: "USER",
		Scenario: models.DataScenarioValid, Role: &role,
		Value: json.RawMessage(`{"email":"a@example.com"}`), Source: models.DataSourceFixed,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, dks.Upsert(ctx, dk))

	dk.Value = json.RawMessage(`{"email":"b@example.com"}`)
	require.NoError(t, dks.Upsert(ctx, dk))

	found, err := dks.Find(ctx, project.ID, "USER", models.DataScenarioValid, &role)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"b@example.com"}`, string(found.Value))
}

func TestSelectorKnowledgeUpsertIncrementsUsageCount(t *testing.T) {
	client := newTestDB(t)
	ctx := context.Background()

	ps := NewProjectStore(client.DB())
	as := NewApplicationStore(client.DB())
	sks := NewSelectorKnowledgeStore(client.DB())
	project := seedProject(ctx, t, ps)

	app := &models.Application{ID: uuid.New().String(), ProjectID: project.ID, Code: "web", CreatedAt: time.Now()}
	require.NoError(t, as.Create(ctx, app))

	sk := &models.SelectorKnowledge{
		ID: uuid.New().String(), ProjectID: project.ID, ApplicationID: app.ID,
		SemanticKey: "login.submit", Selector: "button[type=submit]",
		ConfidenceScore: 0.9, UsageCount: 1, LastVerifiedAt: time.Now(),
	}
	require.NoError(t, sks.Upsert(ctx, sk))
	require.NoError(t, sks.Upsert(ctx, sk))

	found, err := sks.Find(ctx, app.ID, "login.submit")
	require.NoError(t, err)
	assert.Equal(t, 2, found.UsageCount)
}

func TestTestCaseListExecutableForEnvironmentFiltersByStatusAndSteps(t *testing.T) {
	client := newTestDB(t)
	ctx := context.Background()

	ps := NewProjectStore(client.DB())
	tcs := NewTestCaseStore(client.DB())
	project := seedProject(ctx, t, ps)

	ready := &models.TestCase{
		ID: uuid.New().String(), ProjectID: project.ID, Title: "Can checkout",
		Status: models.TestCaseStatusReady, TestType: models.TestTypeE2E,
		TestSteps: []string{"open cart", "click checkout"},
		DataCondition: models.DataConditionNone,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, tcs.Create(ctx, ready))

	draft := &models.TestCase{
		ID: uuid.New().String(), ProjectID: project.ID, Title: "Draft case",
		Status: models.TestCaseStatusDraft, TestType: models.TestTypeE2E,
		TestSteps: []string{"open cart"},
		DataCondition: models.DataConditionNone,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, tcs.Create(ctx, draft))

	noSteps := &models.TestCase{
		ID: uuid.New().String(), ProjectID: project.ID, Title: "No steps yet",
		Status: models.TestCaseStatusReady, TestType: models.TestTypeE2E,
		DataCondition: models.DataConditionNone,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, tcs.Create(ctx, noSteps))

	executable, err := tcs.ListExecutableForEnvironment(ctx, project.ID, nil)
	require.NoError(t, err)
	require.Len(t, executable, 1)
	assert.Equal(t, ready.ID, executable[0].ID)
}

func TestExecutionLifecycleStartHeartbeatFinish(t *testing.T) {
	client := newTestDB(t)
	ctx := context.Background()

	ps := NewProjectStore(client.DB())
	as := NewApplicationStore(client.DB())
	envs := NewEnvironmentStore(client.DB())
	tcs := NewTestCaseStore(client.DB())
	runs := NewTestRunStore(client.DB())
	execs := NewExecutionStore(client.DB())

	project := seedProject(ctx, t, ps)
	app := &models.Application{ID: uuid.New().String(), ProjectID: project.ID, Code: "web", CreatedAt: time.Now()}
	require.NoError(t, as.Create(ctx, app))

	env := &models.Environment{
		ID: uuid.New().String(), ProjectID: project.ID, ApplicationID: &app.ID,
		BaseURL: "https://staging.example.com", Type: models.TestTypeE2E, IsActive: true,
		APIAuthMode: models.APIAuthModeNone, E2EAuthMode: models.E2EAuthModeNever,
		Credentials: []models.Credential{}, CreatedAt: time.Now(),
	}
	require.NoError(t, envs.Create(ctx, env))

	tc := &models.TestCase{
		ID: uuid.New().String(), ProjectID: project.ID, Title: "Can checkout",
		Status: models.TestCaseStatusReady, TestType: models.TestTypeE2E,
		TestSteps: []string{"open cart"}, DataCondition: models.DataConditionNone,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, tcs.Create(ctx, tc))

	run := &models.TestRun{ID: uuid.New().String(), ProjectID: project.ID, StartedAt: time.Now()}
	require.NoError(t, runs.Start(ctx, run))

	exec := &models.Execution{
		ID: uuid.New().String(), RunID: run.ID, ProjectID: project.ID,
		EnvironmentID: env.ID, TestCaseID: tc.ID,
	}
	require.NoError(t, execs.Create(ctx, exec))
	require.NoError(t, execs.Start(ctx, exec.ID))
	require.NoError(t, execs.Heartbeat(ctx, exec.ID))

	summary := "all steps passed"
	require.NoError(t, execs.Finish(ctx, exec.ID, FinishResult{
		Status:        models.ExecutionStatusPassed,
		ResultSummary: &summary,
		ReadableSteps: []string{"opened cart"},
	}))

	got, err := execs.Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPassed, got.Status)
	assert.NotNil(t, got.FinishedAt)
	assert.Equal(t, []string{"opened cart"}, got.ReadableSteps)
}
