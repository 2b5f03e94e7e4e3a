package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/qaflow/qaflow/pkg/airesolve"
	"github.com/qaflow/qaflow/pkg/artifacts"
	"github.com/qaflow/qaflow/pkg/config"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/selvalidate"
	"github.com/qaflow/qaflow/pkg/store"
)

// Runner dispatches one Execution's plan against a pooled browser.
type Runner struct {
	pool      *Pool
	artifacts *artifacts.Store
	selectors *store.SelectorKnowledgeStore
	resolver  *airesolve.Resolver
	cfg       *config.BrowserConfig
}

// NewRunner composes a Runner over its collaborators. resolver may be nil
// when the AI selector resolver is not configured; the runtime fallback
// loop then fails selector-related steps instead of asking AI.
func NewRunner(pool *Pool, store_ *artifacts.Store, selectors *store.SelectorKnowledgeStore, resolver *airesolve.Resolver, cfg *config.BrowserConfig) *Runner {
	return &Runner{pool: pool, artifacts: store_, selectors: selectors, resolver: resolver, cfg: cfg}
}

// Input is everything Run needs beyond the plan itself.
type Input struct {
	ExecutionID   string
	ProjectID     string
	ApplicationID string
	BaseURL       string
	Username      string
	Password      string
	Variables     map[string]string
}

// Result is the outcome of dispatching an Execution's plan (§4.8's
// "Execution metadata" and "Verdict" sections).
type Result struct {
	Passed            bool
	ErrorMessage      string
	Duration          time.Duration
	ScreenshotURLs    []string
	VideoURL          string
	ExecutionMetadata models.ExecutionMetadata
	ReadableSteps     []string
	Steps             []models.AgentExecutionStep
}

// Run dispatches plan's steps in order against a fresh browser context,
// uploading artifacts and applying the runtime selector fallback loop, per
// §4.8 in full.
func (r *Runner) Run(ctx context.Context, in Input, plan *models.AgentExecution) (*Result, error) {
	started := time.Now()

	b, err := r.pool.Acquire()
	if err != nil {
		return nil, err
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("browser: create isolated context: %w", err)
	}
	defer incognito.Close()

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("browser: open page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1280, Height: 720, DeviceScaleFactor: 1, Mobile: false,
	}); err != nil {
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	recorder := startRecording(page)
	defer recorder.stop()

	steps := append([]models.AgentExecutionStep(nil), plan.Steps...)
	sortByIndex(steps)

	result := &Result{
		ExecutionMetadata: models.ExecutionMetadata{
			BaseURL:  in.BaseURL,
			TestData: variablesToTestData(in.Variables, in.Username, in.Password),
		},
	}

	firstFailure := ""
	for i := range steps {
		step := &steps[i]
		if err := r.dispatchStep(ctx, page, in, step); err != nil {
			step.Passed = false
			step.Error = err.Error()
			if firstFailure == "" {
				firstFailure = err.Error()
			}
		} else {
			step.Passed = true
			if url, serr := r.captureScreenshot(ctx, page, in.ExecutionID, step.StepIndex); serr == nil {
				result.ScreenshotURLs = append(result.ScreenshotURLs, url)
			}
		}
		result.ReadableSteps = append(result.ReadableSteps, readableStep(*step))
	}

	result.Steps = steps
	result.Passed = firstFailure == ""
	result.ErrorMessage = firstFailure
	result.Duration = time.Since(started)

	if videoURL, verr := recorder.upload(ctx, r.artifacts, in.ExecutionID); verr == nil {
		result.VideoURL = videoURL
	}

	return result, nil
}

func sortByIndex(steps []models.AgentExecutionStep) {
	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && steps[j].StepIndex < steps[j-1].StepIndex; j-- {
			steps[j], steps[j-1] = steps[j-1], steps[j]
		}
	}
}

func variablesToTestData(vars map[string]string, username, password string) map[string]any {
	out := map[string]any{}
	for k, v := range vars {
		out[k] = v
	}
	if username != "" {
		out["username"] = username
	}
	if password != "" {
		out["password"] = "****"
	}
	return out
}

// dispatchStep runs one step's action, resolving its selector (with the
// runtime fallback loop when needed), then evaluates its assertion.
func (r *Runner) dispatchStep(ctx context.Context, page *rod.Page, in Input, step *models.AgentExecutionStep) error {
	timeout := r.cfg.ActionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	switch step.Action {
	case models.StepActionLogin:
		return dispatchLogin(page, in.BaseURL, in.Username, in.Password, timeout)

	case models.StepActionNavigate:
		target := ""
		if step.ResolvedSelector != nil {
			target = *step.ResolvedSelector
		}
		if !isAbsoluteURL(target) {
			return ErrInvalidNavigationTarget
		}
		if err := page.Navigate(target); err != nil {
			return fmt.Errorf("browser: navigate to %s: %w", target, err)
		}
		if err := page.WaitLoad(); err != nil {
			return fmt.Errorf("browser: wait for load: %w", err)
		}
		return waitStable(page, r.stabilizationBudget())

	case models.StepActionWait:
		time.Sleep(time.Second)
		return nil

	case models.StepActionFill:
		return r.dispatchWithFallback(ctx, page, in, step, timeout, func(el *rod.Element) error {
			value := ""
			if step.Assertion != nil && step.Assertion.Type == models.AssertionFillValue {
				value = step.Assertion.Value
			}
			return el.Input(value)
		})

	case models.StepActionClick:
		return r.dispatchWithFallback(ctx, page, in, step, timeout, func(el *rod.Element) error {
			if step.ResolvedSelector != nil {
				if err := checkRoleAccessibleName(el, *step.ResolvedSelector); err != nil {
					return err
				}
			}
			return el.Click(input.Left, 1)
		})

	case models.StepActionSelect:
		return r.dispatchWithFallback(ctx, page, in, step, timeout, func(el *rod.Element) error {
			value := ""
			if step.Assertion != nil {
				value = step.Assertion.Value
			}
			return el.Select([]string{value}, true, rod.SelectorTypeCSSSector)
		})

	case models.StepActionHover:
		return r.dispatchWithFallback(ctx, page, in, step, timeout, func(el *rod.Element) error {
			return el.Hover()
		})

	case models.StepActionAssertVisible, models.StepActionAssertText, models.StepActionAssertURL:
		return r.dispatchWithFallback(ctx, page, in, step, timeout, func(el *rod.Element) error {
			return evaluateAssertion(page, el, step.Assertion, "")
		})
	}

	return fmt.Errorf("browser: unrecognized action %q", step.Action)
}

func (r *Runner) stabilizationBudget() time.Duration {
	if r.cfg.StabilizationBudget > 0 {
		return r.cfg.StabilizationBudget
	}
	return 5 * time.Second
}

// dispatchWithFallback locates step's selector, runs action against the
// located element, evaluates any attached assertion, and — on a
// selector-related failure — applies the runtime selector fallback loop
// (§4.8) before retrying once.
func (r *Runner) dispatchWithFallback(ctx context.Context, page *rod.Page, in Input, step *models.AgentExecutionStep, timeout time.Duration, action func(*rod.Element) error) error {
	selector := ""
	if step.ResolvedSelector != nil {
		selector = *step.ResolvedSelector
	}

	run := func(sel string) error {
		var el *rod.Element
		var err error
		if step.Action == models.StepActionFill {
			el, err = resolveFillTarget(page, sel, looksLikePasswordField(step.StepText))
		} else {
			el, _, err = locate(page.Timeout(timeout), sel)
		}
		if err != nil {
			return err
		}
		if err := action(el); err != nil {
			return err
		}
		return evaluateAssertion(page, el, step.Assertion, selectorValue(step))
	}

	err := run(selector)
	if err == nil {
		return nil
	}
	if !isSelectorRelated(err) || !fallbackEligible(step.Action) || in.ProjectID == "" || in.ApplicationID == "" {
		return err
	}

	newSelector, ferr := r.runFallback(ctx, page, in, step)
	if ferr != nil {
		return err
	}

	if retryErr := run(newSelector); retryErr != nil {
		return retryErr
	}

	step.ResolvedSelector = &newSelector
	r.persistLearnedSelector(ctx, in, step, newSelector)
	return nil
}

func looksLikePasswordField(stepText string) bool {
	lower := strings.ToLower(stepText)
	return strings.Contains(lower, "password") || strings.Contains(lower, "passphrase")
}

func selectorValue(step *models.AgentExecutionStep) string {
	if step.Assertion != nil {
		return step.Assertion.Value
	}
	return ""
}

var fallbackActions = map[models.StepAction]bool{
	models.StepActionClick: true, models.StepActionFill: true, models.StepActionSelect: true,
	models.StepActionHover: true, models.StepActionAssertVisible: true, models.StepActionAssertText: true,
}

func fallbackEligible(action models.StepAction) bool {
	return fallbackActions[action]
}

// runFallback implements §4.8's runtime selector fallback/learning loop:
// snapshot the DOM and ask AI, which validates its answer against the
// snapshot before it is returned. No execution-scoped selector cache is
// kept: every eligible failure snapshots the page and calls the resolver
// again, and a "no match" answer is not remembered for later steps.
func (r *Runner) runFallback(ctx context.Context, page *rod.Page, in Input, step *models.AgentExecutionStep) (string, error) {
	if r.resolver == nil {
		return "", fmt.Errorf("browser: no AI selector resolver configured")
	}

	snapshot, err := buildSnapshot(page, r.cfg.MaxSnapshotElements)
	if err != nil {
		return "", err
	}
	if len(snapshot) == 0 {
		return "", fmt.Errorf("browser: no interactive elements found on page")
	}

	res, err := r.resolver.Resolve(ctx, airesolve.Request{
		Action:              step.Action,
		Target:              step.StepText,
		InteractiveSnapshot: snapshot,
	})
	if err != nil {
		return "", err
	}
	if res.NoMatch {
		return "", fmt.Errorf("browser: AI selector resolver found no match")
	}

	return string(res.LocatorStrategy) + ":" + res.Selector, nil
}

func (r *Runner) persistLearnedSelector(ctx context.Context, in Input, step *models.AgentExecutionStep, selector string) {
	if !selvalidate.Valid(step.Action, selector) {
		return
	}
	_ = r.selectors.Upsert(ctx, &models.SelectorKnowledge{
		ID:              uuid.NewString(),
		ProjectID:       in.ProjectID,
		ApplicationID:   in.ApplicationID,
		SemanticKey:     step.SemanticKey,
		Selector:        selector,
		ConfidenceScore: 1,
		UsageCount:      1,
		LastVerifiedAt:  time.Now().UTC(),
	})
}

func (r *Runner) captureScreenshot(ctx context.Context, page *rod.Page, executionID string, stepIndex int) (string, error) {
	if err := waitStable(page, r.stabilizationBudget()); err != nil {
		return "", err
	}
	data, err := page.Screenshot(false, nil)
	if err != nil {
		return "", err
	}
	return r.artifacts.Put(ctx, artifacts.ScreenshotKey(executionID, stepIndex), data, "image/png")
}

func readableStep(step models.AgentExecutionStep) string {
	verb := map[models.StepAction]string{
		models.StepActionLogin:         "Logged in",
		models.StepActionNavigate:      "Navigated",
		models.StepActionClick:         "Clicked",
		models.StepActionFill:          "Filled",
		models.StepActionSelect:        "Selected an option for",
		models.StepActionHover:         "Hovered over",
		models.StepActionAssertVisible: "Asserted visible:",
		models.StepActionAssertText:    "Asserted text:",
		models.StepActionAssertURL:     "Asserted URL:",
		models.StepActionWait:          "Waited during",
	}[step.Action]
	if verb == "" {
		verb = "Executed"
	}
	status := "ok"
	if !step.Passed {
		status = "failed: " + step.Error
	}
	return fmt.Sprintf("%s %q (%s)", verb, step.StepText, status)
}
