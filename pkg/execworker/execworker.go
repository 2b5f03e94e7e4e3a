// Package execworker implements the execution worker (C13): it consumes
// `execution` queue jobs, decrypts the target Environment's credentials
// exactly once for the job's lifetime (§9), drives the browser runner (C8)
// through the Execution's prepared plan, and writes the terminal result
// back.
package execworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/qaflow/qaflow/pkg/browser"
	"github.com/qaflow/qaflow/pkg/envbind"
	"github.com/qaflow/qaflow/pkg/jobqueue"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/qerrors"
	"github.com/qaflow/qaflow/pkg/runorchestrator"
	"github.com/qaflow/qaflow/pkg/secrets"
	"github.com/qaflow/qaflow/pkg/store"
)

// Service drives one claimed Execution at a time per call and implements
// jobqueue.Handler so it plugs directly into jobqueue.NewPool.
type Service struct {
	executions   *store.ExecutionStore
	testCases    *store.TestCaseStore
	environments *store.EnvironmentStore
	tickets      *store.TicketStore
	runner       *browser.Runner
	box          *secrets.Box
	heartbeat    time.Duration
}

// NewService builds a Service. heartbeat controls how often the Execution's
// last_heartbeat_at is refreshed while the browser runner is dispatching;
// defaults to 15s if non-positive.
func NewService(
	executions *store.ExecutionStore,
	testCases *store.TestCaseStore,
	environments *store.EnvironmentStore,
	tickets *store.TicketStore,
	runner *browser.Runner,
	box *secrets.Box,
	heartbeat time.Duration,
) *Service {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Service{
		executions: executions, testCases: testCases, environments: environments,
		tickets: tickets, runner: runner, box: box, heartbeat: heartbeat,
	}
}

// Handle implements jobqueue.Handler.
func (s *Service) Handle(ctx context.Context, job *jobqueue.Job) error {
	var payload runorchestrator.DispatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal execution dispatch payload: %w", err)
	}
	return s.execute(ctx, payload.ExecutionID)
}

func (s *Service) execute(ctx context.Context, executionID string) error {
	exec, err := s.executions.Get(ctx, executionID)
	if err != nil {
		return fmt.Errorf("load execution: %w", err)
	}
	tc, err := s.testCases.Get(ctx, exec.TestCaseID)
	if err != nil {
		return fmt.Errorf("load test case: %w", err)
	}
	env, err := s.environments.Get(ctx, exec.EnvironmentID)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	if exec.AgentExecution == nil || len(exec.AgentExecution.Steps) == 0 {
		return s.finishWithoutDispatch(ctx, exec, "no pre-execution plan was prepared for this Execution", qerrors.ClassificationConfiguration)
	}

	var ticket *models.Ticket
	if tc.TicketID != nil {
		ticket, err = s.tickets.Get(ctx, *tc.TicketID)
		if err != nil {
			return fmt.Errorf("load ticket: %w", err)
		}
	}
	actor := envbind.ResolveActor(tc, ticket)
	cred, _ := envbind.ResolveCredential(env, actor)

	// §9: decrypted exactly once, here, for the lifetime of this job; never
	// persisted or forwarded past this function call.
	if _, err := envbind.Decrypt(s.box, env); err != nil {
		return s.finishWithoutDispatch(ctx, exec, fmt.Sprintf("decrypt environment credentials: %v", err), qerrors.ClassificationConfiguration)
	}

	vars := map[string]string{}
	if len(exec.AgentExecution.DataSnapshot) > 0 {
		if err := json.Unmarshal(exec.AgentExecution.DataSnapshot, &vars); err != nil {
			return fmt.Errorf("unmarshal data snapshot: %w", err)
		}
	}

	applicationID := ""
	if env.ApplicationID != nil {
		applicationID = *env.ApplicationID
	}

	stopHeartbeat := s.startHeartbeat(ctx, exec.ID)
	defer stopHeartbeat()

	in := browser.Input{
		ExecutionID:   exec.ID,
		ProjectID:     exec.ProjectID,
		ApplicationID: applicationID,
		BaseURL:       env.BaseURL,
		Username:      cred.Username,
		Password:      cred.Password,
		Variables:     vars,
	}

	result, runErr := s.runner.Run(ctx, in, exec.AgentExecution)
	if runErr != nil {
		// An infrastructure-level failure (browser launch, context
		// creation): surface it to the queue so the job retries up to
		// MaxAttempts rather than finalizing the Execution on a transient
		// failure.
		return fmt.Errorf("browser run: %w", runErr)
	}

	return s.finish(ctx, exec, result)
}

func (s *Service) finish(ctx context.Context, exec *models.Execution, result *browser.Result) error {
	fr, err := buildFinishResult(result)
	if err != nil {
		return err
	}
	return s.executions.Finish(ctx, exec.ID, fr)
}

// buildFinishResult translates a browser.Result into the store's terminal
// write shape: PASSED/FAILED status, a one-line summary, and the marshaled
// step log and metadata.
func buildFinishResult(result *browser.Result) (store.FinishResult, error) {
	status := models.ExecutionStatusFailed
	summary := "Execution failed: " + result.ErrorMessage
	if result.Passed {
		status = models.ExecutionStatusPassed
		summary = "Execution passed"
	}

	stepLog, err := json.Marshal(result.Steps)
	if err != nil {
		return store.FinishResult{}, fmt.Errorf("marshal step log: %w", err)
	}
	metadata, err := json.Marshal(result.ExecutionMetadata)
	if err != nil {
		return store.FinishResult{}, fmt.Errorf("marshal execution metadata: %w", err)
	}

	var videoURL *string
	if result.VideoURL != "" {
		videoURL = &result.VideoURL
	}
	var errMsg *string
	if result.ErrorMessage != "" {
		errMsg = &result.ErrorMessage
	}

	return store.FinishResult{
		Status:            status,
		VideoURL:          videoURL,
		ScreenshotURLs:    result.ScreenshotURLs,
		StepLog:           stepLog,
		ResultSummary:     &summary,
		ErrorMessage:      errMsg,
		ExecutionMetadata: metadata,
		ReadableSteps:     result.ReadableSteps,
	}, nil
}

// finishWithoutDispatch finalizes an Execution as FAILED without ever
// driving the browser — used when the Execution cannot be dispatched at
// all (no plan, undecryptable credentials). class tags the failure the way
// §7 classifies it for the UI, prefixed onto the stored reason since
// Execution carries no separate classification column.
func (s *Service) finishWithoutDispatch(ctx context.Context, exec *models.Execution, reason string, class qerrors.Classification) error {
	tagged := fmt.Sprintf("[%s] %s", class, reason)
	return s.executions.Finish(ctx, exec.ID, store.FinishResult{
		Status:        models.ExecutionStatusFailed,
		ResultSummary: &tagged,
		ErrorMessage:  &tagged,
	})
}

// startHeartbeat refreshes the Execution's last_heartbeat_at on an interval
// until the returned stop function is called, the same ticker-plus-
// context-cancellation shape the teacher's queue worker uses to keep an
// AlertSession's last_interaction_at current during a long-running job.
func (s *Service) startHeartbeat(ctx context.Context, executionID string) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := s.executions.Heartbeat(context.Background(), executionID); err != nil {
					slog.Warn("execution worker: heartbeat failed", "execution_id", executionID, "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
