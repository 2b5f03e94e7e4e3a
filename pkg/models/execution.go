package models

import (
	"encoding/json"
	"time"
)

// Assertion is the typed assertion attached to an AgentExecutionStep,
// produced by the assertion mapper (C5).
type Assertion struct {
	Type     AssertionType `json:"type"`
	Selector string        `json:"selector,omitempty"`
	Value    string        `json:"value,omitempty"`
}

// AgentExecutionStep is one prepared step of a runnable plan.
type AgentExecutionStep struct {
	StepIndex          int              `json:"step_index"`
	SemanticKey        string           `json:"semantic_key"`
	Action             StepAction       `json:"action"`
	StepText           string           `json:"step_text"`
	ResolvedSelector   *string          `json:"resolved_selector,omitempty"`
	ResolutionStatus   ResolutionStatus `json:"resolution_status"`
	Assertion          *Assertion       `json:"assertion,omitempty"`
	LastVerifiedAt     *time.Time       `json:"last_verified_at,omitempty"`
	ResolvedFrom       ResolvedFrom     `json:"resolved_from,omitempty"`

	// Passed and Error are populated by the browser runner (C8) after dispatch;
	// they are not part of the persisted pre-execution plan.
	Passed bool   `json:"passed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AgentExecution is the persisted, ordered list of prepared steps for one
// Execution — the sole input to the browser runner.
type AgentExecution struct {
	Steps        []AgentExecutionStep `json:"steps"`
	DataSnapshot json.RawMessage      `json:"data_snapshot,omitempty"`
}

// Execution is one Test Case's run within a Test Run. Never mutated after
// terminal (§3).
type Execution struct {
	ID                string          `json:"id"`
	RunID             string          `json:"run_id"`
	ProjectID         string          `json:"project_id"`
	EnvironmentID     string          `json:"environment_id"`
	TestCaseID        string          `json:"test_case_id"`
	Status            ExecutionStatus `json:"status"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
	Duration          *time.Duration  `json:"duration,omitempty"`
	VideoURL          *string         `json:"video_url,omitempty"`
	ScreenshotURLs    []string        `json:"screenshot_urls,omitempty"`
	StepLog           json.RawMessage `json:"step_log,omitempty"`
	ResultSummary     *string         `json:"result_summary,omitempty"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	ExecutionMetadata json.RawMessage `json:"execution_metadata,omitempty"`
	ReadableSteps     []string        `json:"readable_steps,omitempty"`
	AgentExecution    *AgentExecution `json:"agent_execution,omitempty"`
	LastHeartbeatAt   *time.Time      `json:"last_heartbeat_at,omitempty"`
}

// ExecutionMetadata is the shape written to Execution.ExecutionMetadata (§4.8).
type ExecutionMetadata struct {
	BaseURL  string         `json:"base_url"`
	TestData map[string]any `json:"test_data"`
}
