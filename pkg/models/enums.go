package models

// TestType is the kind of test an Environment or TestCase targets.
type TestType string

const (
	TestTypeAPI TestType = "API"
	TestTypeE2E TestType = "E2E"
)

// IsValid reports whether t is a known test type.
func (t TestType) IsValid() bool {
	return t == TestTypeAPI || t == TestTypeE2E
}

// APIAuthMode controls how an API Environment authenticates requests.
type APIAuthMode string

const (
	APIAuthModeNone        APIAuthMode = "NONE"
	APIAuthModeBasic       APIAuthMode = "BASIC_AUTH"
	APIAuthModeBearerToken APIAuthMode = "BEARER_TOKEN"
)

// E2EAuthMode controls whether the browser runner logs in before a plan's steps.
type E2EAuthMode string

const (
	E2EAuthModeAlways      E2EAuthMode = "ALWAYS_AUTH"
	E2EAuthModeNever       E2EAuthMode = "NEVER_AUTH"
	E2EAuthModeConditional E2EAuthMode = "CONDITIONAL"
)

// TicketStatus tracks a Ticket through its lifecycle.
type TicketStatus string

const (
	TicketStatusDraft        TicketStatus = "DRAFT"
	TicketStatusReadyToTest  TicketStatus = "READY_TO_TEST"
	TicketStatusDone         TicketStatus = "DONE"
	TicketStatusCancel       TicketStatus = "CANCEL"
)

// TestCaseStatus tracks a TestCase through its lifecycle.
type TestCaseStatus string

const (
	TestCaseStatusDraft   TestCaseStatus = "DRAFT"
	TestCaseStatusReady   TestCaseStatus = "READY"
	TestCaseStatusTesting TestCaseStatus = "TESTING"
	TestCaseStatusPassed  TestCaseStatus = "PASSED"
	TestCaseStatusFailed  TestCaseStatus = "FAILED"
	TestCaseStatusCancel  TestCaseStatus = "CANCEL"
	TestCaseStatusIgnore  TestCaseStatus = "IGNORE"
)

// DataCondition drives the data orchestrator (C4).
type DataCondition string

const (
	DataConditionNone               DataCondition = "NO_DATA_DEPENDENCY"
	DataConditionStateful           DataCondition = "STATEFUL_DEPENDENCY"
	DataConditionCrossEntity        DataCondition = "CROSS_ENTITY_DEPENDENCY"
	DataConditionRecordMustExist    DataCondition = "RECORD_MUST_EXIST"
	DataConditionRecordMustNotExist DataCondition = "RECORD_MUST_NOT_EXIST"
)

// DataScenario classifies a DataKnowledge row.
type DataScenario string

const (
	DataScenarioValid   DataScenario = "VALID"
	DataScenarioInvalid DataScenario = "INVALID"
	DataScenarioEdge    DataScenario = "EDGE"
	DataScenarioEmpty   DataScenario = "EMPTY"
)

// DataSource identifies how a DataKnowledge value was produced.
type DataSource string

const (
	DataSourceFixed        DataSource = "FIXED"
	DataSourceAISimulation DataSource = "AI_SIMULATION"
	DataSourceUserInput    DataSource = "USER_INPUT"
)

// TestRunStatus tracks a TestRun through its lifecycle.
type TestRunStatus string

const (
	TestRunStatusRunning   TestRunStatus = "RUNNING"
	TestRunStatusCompleted TestRunStatus = "COMPLETED"
)

// ExecutionStatus tracks an Execution through its lifecycle.
type ExecutionStatus string

const (
	ExecutionStatusQueued  ExecutionStatus = "QUEUED"
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	ExecutionStatusPassed  ExecutionStatus = "PASSED"
	ExecutionStatusFailed  ExecutionStatus = "FAILED"
)

// IsTerminal reports whether the status is a terminal Execution state.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusPassed || s == ExecutionStatusFailed
}

// StepAction is the closed set of actions the browser runner dispatches.
type StepAction string

const (
	StepActionNavigate     StepAction = "navigate"
	StepActionClick        StepAction = "click"
	StepActionFill         StepAction = "fill"
	StepActionSelect       StepAction = "select"
	StepActionHover        StepAction = "hover"
	StepActionAssertVisible StepAction = "assert_visible"
	StepActionAssertText   StepAction = "assert_text"
	StepActionAssertURL    StepAction = "assert_url"
	StepActionWait         StepAction = "wait"
	StepActionLogin        StepAction = "login"
)

// ResolutionStatus tracks how (or whether) a step's selector has been resolved.
type ResolutionStatus string

const (
	ResolutionStatusResolved       ResolutionStatus = "RESOLVED"
	ResolutionStatusUnresolved     ResolutionStatus = "UNRESOLVED"
	ResolutionStatusBroken         ResolutionStatus = "BROKEN"
	ResolutionStatusPendingRuntime ResolutionStatus = "PENDING_RUNTIME"
)

// ResolvedFrom records which resolution path produced a selector.
type ResolvedFrom string

const (
	ResolvedFromStrict    ResolvedFrom = "strict"
	ResolvedFromKnowledge ResolvedFrom = "knowledge"
	ResolvedFromAI        ResolvedFrom = "ai"
	ResolvedFromAIRuntime ResolvedFrom = "ai_runtime"
)

// AssertionType is the closed set of assertions the runner can evaluate.
type AssertionType string

const (
	AssertionElementVisible    AssertionType = "element_visible"
	AssertionElementNotVisible AssertionType = "element_not_visible"
	AssertionElementNotExists  AssertionType = "element_not_exists"
	AssertionURLContains       AssertionType = "url_contains"
	AssertionTextContains      AssertionType = "text_contains"
	AssertionStatusCode        AssertionType = "status_code"
	AssertionTextMasked        AssertionType = "text_masked"
	AssertionFillValue         AssertionType = "fill_value"
)

// LocatorStrategy is the closed set of selector strategies the AI resolver may return.
type LocatorStrategy string

const (
	LocatorStrategyCSS  LocatorStrategy = "css"
	LocatorStrategyRole LocatorStrategy = "role"
	LocatorStrategyText LocatorStrategy = "text"
	LocatorStrategyXPath LocatorStrategy = "xpath"
)

// CacheStatus names the value kinds of an execution-scoped runtime selector
// cache. No package in this module keeps such a cache or uses these values.
type CacheStatus string

const (
	CacheStatusFoundInDB CacheStatus = "FOUND_IN_DB"
	CacheStatusFoundInAI CacheStatus = "FOUND_IN_AI"
	CacheStatusNotFound  CacheStatus = "NOT_FOUND"
)
