// Package runcreator implements the run creator (C11, §4.3): once per
// `create_test_run` job, it starts at most one new RUNNING TestRun per
// Project among due Schedules, seeds its Executions, and advances each
// Schedule's cron clock.
package runcreator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/qaflow/qaflow/pkg/envbind"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/preexec"
	"github.com/qaflow/qaflow/pkg/qerrors"
	"github.com/qaflow/qaflow/pkg/scheduling"
	"github.com/qaflow/qaflow/pkg/store"
)

// Service runs the §4.3 algorithm against due Schedules.
type Service struct {
	schedules    *store.ScheduleStore
	testRuns     *store.TestRunStore
	testCases    *store.TestCaseStore
	tickets      *store.TicketStore
	environments *store.EnvironmentStore
	executions   *store.ExecutionStore
	preexec      *preexec.Service
}

// NewService builds a Service over its collaborators.
func NewService(
	schedules *store.ScheduleStore,
	testRuns *store.TestRunStore,
	testCases *store.TestCaseStore,
	tickets *store.TicketStore,
	environments *store.EnvironmentStore,
	executions *store.ExecutionStore,
	preexecSvc *preexec.Service,
) *Service {
	return &Service{
		schedules: schedules, testRuns: testRuns, testCases: testCases,
		tickets: tickets, environments: environments, executions: executions,
		preexec: preexecSvc,
	}
}

// Run executes §4.3 step 1: load every due Schedule and process each
// independently, so one schedule's failure never blocks another's.
func (s *Service) Run(ctx context.Context) error {
	now := time.Now()
	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return err
	}

	for _, sc := range due {
		if err := s.processSchedule(ctx, sc, now); err != nil {
			slog.Error("run creator: schedule processing failed",
				"schedule_id", sc.ID, "project_id", sc.ProjectID, "error", err)
		}
	}
	return nil
}

// processSchedule implements §4.3 steps 2-9 for one due Schedule.
func (s *Service) processSchedule(ctx context.Context, sc *models.Schedule, now time.Time) error {
	advance := func() error {
		next, err := scheduling.NextRunAt(sc.CronExpression, now)
		if err != nil {
			return err
		}
		return s.schedules.AdvanceNextRun(ctx, sc.ID, now, next)
	}

	// Step 2: single-active-run invariant, first check.
	if _, err := s.testRuns.GetRunning(ctx, sc.ProjectID); err == nil {
		return advance()
	} else if !errors.Is(err, qerrors.ErrNoRunningRun) {
		return err
	}

	// Step 3: ready tickets, then their READY, non-empty-step test cases.
	tickets, err := s.tickets.ListReadyToTest(ctx, sc.ProjectID)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return advance()
	}
	readyTicketIDs := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		readyTicketIDs[t.ID] = true
	}

	// Step 4: the schedule's bound environments.
	envs, err := s.environments.ListActiveForSchedule(ctx, sc.EnvironmentIDs)
	if err != nil {
		return err
	}
	if len(envs) == 0 {
		return advance()
	}

	candidates, err := s.candidateTestCases(ctx, sc.ProjectID, envs, readyTicketIDs)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return advance()
	}

	// Step 5: re-check the single-active-run invariant; TestRunStore.Start
	// enforces it atomically via a partial unique index on (project_id)
	// WHERE status = 'RUNNING', so a concurrent winner surfaces here as
	// qerrors.ErrAlreadyExists rather than a lost race.
	run := &models.TestRun{ID: uuid.NewString(), ProjectID: sc.ProjectID, StartedAt: now}
	if err := s.testRuns.Start(ctx, run); err != nil {
		if errors.Is(err, qerrors.ErrAlreadyExists) {
			return advance()
		}
		return err
	}

	matched, skipped := s.matchEnvironments(candidates, envs)

	var created []*models.Execution
	for _, m := range matched {
		exec := &models.Execution{
			ID: uuid.NewString(), RunID: run.ID, ProjectID: sc.ProjectID,
			EnvironmentID: m.env.ID, TestCaseID: m.tc.ID,
		}
		if err := s.executions.Create(ctx, exec); err != nil {
			slog.Error("run creator: create execution failed", "test_case_id", m.tc.ID, "error", err)
			continue
		}
		if err := s.testCases.UpdateStatus(ctx, m.tc.ID, models.TestCaseStatusTesting, nil); err != nil {
			slog.Error("run creator: mark test case testing failed", "test_case_id", m.tc.ID, "error", err)
		}
		created = append(created, exec)
	}

	// Step 7: skipped cases are ignored with a human-readable reason.
	for _, sk := range skipped {
		reason := ignoreReason(sk)
		if err := s.testCases.UpdateStatus(ctx, sk.ID, models.TestCaseStatusIgnore, &reason); err != nil {
			slog.Error("run creator: mark test case ignored failed", "test_case_id", sk.ID, "error", err)
		}
	}

	// Step 8: pre-execution runs best-effort; a failure here never fails
	// the Run, it just leaves the Execution QUEUED with an empty plan.
	for _, exec := range created {
		m := matchByExecution(matched, exec.TestCaseID)
		if m == nil {
			continue
		}
		s.prepareExecution(ctx, exec, m.tc, m.env)
	}

	next, err := scheduling.NextRunAt(sc.CronExpression, now)
	if err != nil {
		return err
	}
	return s.schedules.AdvanceNextRun(ctx, sc.ID, now, next)
}

type envMatch struct {
	tc  *models.TestCase
	env *models.Environment
}

// matchEnvironments applies §4.11's environment-binding rule (via
// pkg/envbind) to every candidate TestCase, splitting matched from skipped.
func (s *Service) matchEnvironments(candidates []*models.TestCase, envs []*models.Environment) (matched []envMatch, skipped []*models.TestCase) {
	for _, tc := range candidates {
		env, ok := envbind.Match(envs, tc.TestType, tc.ApplicationID)
		if !ok {
			skipped = append(skipped, tc)
			continue
		}
		matched = append(matched, envMatch{tc: tc, env: env})
	}
	return matched, skipped
}

func matchByExecution(matched []envMatch, testCaseID string) *envMatch {
	for i := range matched {
		if matched[i].tc.ID == testCaseID {
			return &matched[i]
		}
	}
	return nil
}

func (s *Service) prepareExecution(ctx context.Context, exec *models.Execution, tc *models.TestCase, env *models.Environment) {
	applicationID := derefOrEmpty(env.ApplicationID)
	plan, err := s.preexec.Prepare(ctx, tc, env, applicationID, nil)
	if err != nil {
		slog.Error("run creator: pre-execution failed", "execution_id", exec.ID, "error", err)
		return
	}
	if err := s.executions.SetAgentExecution(ctx, exec.ID, plan); err != nil {
		slog.Error("run creator: persist pre-execution plan failed", "execution_id", exec.ID, "error", err)
	}
}

// candidateTestCases gathers READY, non-empty-step TestCases belonging to a
// ready-to-test Ticket (or unscoped to any ticket), across every distinct
// application the schedule's environments serve.
func (s *Service) candidateTestCases(ctx context.Context, projectID string, envs []*models.Environment, readyTicketIDs map[string]bool) ([]*models.TestCase, error) {
	seenApp := map[string]bool{}
	var appIDs []*string
	for _, env := range envs {
		key := derefOrEmpty(env.ApplicationID)
		if seenApp[key] {
			continue
		}
		seenApp[key] = true
		appIDs = append(appIDs, env.ApplicationID)
	}

	seenCase := map[string]bool{}
	var out []*models.TestCase
	for _, appID := range appIDs {
		cases, err := s.testCases.ListExecutableForEnvironment(ctx, projectID, appID)
		if err != nil {
			return nil, err
		}
		for _, tc := range cases {
			if seenCase[tc.ID] {
				continue
			}
			if tc.TicketID != nil && !readyTicketIDs[*tc.TicketID] {
				continue
			}
			seenCase[tc.ID] = true
			out = append(out, tc)
		}
	}
	return out, nil
}

func ignoreReason(tc *models.TestCase) string {
	app := "any application"
	if tc.ApplicationID != nil {
		app = "application " + *tc.ApplicationID
	}
	return "no active Environment of type " + string(tc.TestType) + " found for " + app
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
