// Package airesolve implements the AI selector resolver (C6, §4.9): given a
// step's action/target plus a DOM snapshot, it asks a chat-completion model
// for a selector and deterministically re-verifies the answer against the
// snapshot before trusting it.
package airesolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/qaflow/qaflow/pkg/config"
	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/qerrors"
)

// SnapshotRow is one interactive element in the page's accessibility
// snapshot, the post-check's ground truth (§4.9).
type SnapshotRow struct {
	ID   string `json:"id"`
	Tag  string `json:"tag"`
	Role string `json:"role"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Request is the resolver's input contract (§4.9). Snapshot is required:
// per the recorded open-question decision, this resolver never runs without
// one — a step that cannot be snapshotted is left PENDING_RUNTIME instead.
type Request struct {
	Action              models.StepAction
	Target              string
	Value               string
	Assertion           string
	PageSummary         string
	InteractiveSnapshot []SnapshotRow
}

// Result is the resolver's output contract. NoMatch is true when the model
// (or the post-check) could not find a usable element.
type Result struct {
	Selector        string
	LocatorStrategy models.LocatorStrategy
	ResolvedValue   string
	NoMatch         bool
}

// Resolver calls an OpenAI-compatible chat completion endpoint and
// re-verifies its answer against the supplied snapshot.
type Resolver struct {
	client  openai.Client
	cfg     *config.AIConfig
	limiter *rate.Limiter
}

// NewResolver builds a Resolver from cfg. apiKey is read by the caller from
// the environment variable named by cfg.APIKeyEnv (§6 — "DB overrides
// environment"; the AI key itself is never stored in the DB).
func NewResolver(cfg *config.AIConfig, apiKey string, rl *config.RateLimitConfig) *Resolver {
	return &Resolver{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rl.GlobalRatePerSecond), rl.Burst),
	}
}

type modelAnswer struct {
	Selector        string `json:"selector"`
	LocatorStrategy string `json:"locator_strategy"`
	ResolvedValue   string `json:"resolved_value"`
	NoMatch         bool   `json:"no_match"`
}

// Resolve prompts the model for a selector, then applies the deterministic
// post-checks §4.9 requires before the answer can be trusted.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	if len(req.InteractiveSnapshot) == 0 {
		return Result{}, qerrors.Classify(qerrors.ClassificationSelector,
			fmt.Errorf("airesolve: no interactive snapshot supplied for %s %q", req.Action, req.Target))
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	answer, err := r.ask(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if answer.NoMatch {
		return Result{NoMatch: true}, nil
	}

	strategy := models.LocatorStrategy(strings.ToLower(answer.LocatorStrategy))
	selector := answer.Selector

	row, ok := backingRow(req.InteractiveSnapshot, strategy, selector)
	if !ok {
		return Result{}, qerrors.Classify(qerrors.ClassificationSelector,
			fmt.Errorf("airesolve: resolved selector %q is not backed by any snapshot row", selector))
	}

	if err := validateForAction(req.Action, row); err != nil {
		return Result{}, err
	}

	if strategy == models.LocatorStrategyRole {
		selector = normalizeRole(row)
	}

	return Result{Selector: selector, LocatorStrategy: strategy, ResolvedValue: answer.ResolvedValue}, nil
}

func (r *Resolver) ask(ctx context.Context, req Request) (modelAnswer, error) {
	system := r.cfg.SystemPrompt
	if system == "" {
		system = "You select DOM elements from an accessibility snapshot. Only return elements present in the snapshot. Reply with strict JSON: {selector, locator_strategy, resolved_value, no_match}."
	}

	snapshotJSON, err := json.Marshal(req.InteractiveSnapshot)
	if err != nil {
		return modelAnswer{}, fmt.Errorf("airesolve: marshal snapshot: %w", err)
	}

	user := fmt.Sprintf(
		"action=%s target=%q value=%q assertion=%q page_summary=%q snapshot=%s",
		req.Action, req.Target, req.Value, req.Assertion, req.PageSummary, snapshotJSON,
	)

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: r.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return modelAnswer{}, qerrors.Classify(qerrors.ClassificationSelector,
			fmt.Errorf("airesolve: chat completion request: %w", err))
	}
	if len(completion.Choices) == 0 {
		return modelAnswer{}, qerrors.Classify(qerrors.ClassificationSelector,
			fmt.Errorf("airesolve: empty chat completion response"))
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &answer); err != nil {
		return modelAnswer{}, qerrors.Classify(qerrors.ClassificationSelector,
			fmt.Errorf("airesolve: decode model answer: %w", err))
	}
	return answer, nil
}

// backingRow re-verifies that selector is backed by at least one snapshot
// row, by id, name, role+name, text substring, or tag (§4.9).
func backingRow(snapshot []SnapshotRow, strategy models.LocatorStrategy, selector string) (SnapshotRow, bool) {
	needle := strings.TrimSpace(selector)
	for _, row := range snapshot {
		switch {
		case row.ID != "" && strings.Contains(needle, row.ID):
			return row, true
		case row.Name != "" && strings.Contains(needle, row.Name):
			return row, true
		case row.Role != "" && row.Name != "" && needle == row.Role+","+row.Name:
			return row, true
		case row.Text != "" && strings.Contains(strings.ToLower(needle), strings.ToLower(row.Text)):
			return row, true
		case row.Tag != "" && strings.Contains(needle, row.Tag):
			return row, true
		}
	}
	return SnapshotRow{}, false
}

var editableTags = map[string]bool{"input": true, "textarea": true, "contenteditable": true}
var clickableRoles = map[string]bool{"button": true, "link": true, "menuitem": true, "checkbox": true, "radio": true}
var rejectedFillTags = map[string]bool{"submit": true, "image": true}

// validateForAction enforces §4.9's editable/clickable element rules.
func validateForAction(action models.StepAction, row SnapshotRow) error {
	switch action {
	case models.StepActionFill:
		if rejectedFillTags[strings.ToLower(row.Tag)] {
			return qerrors.Classify(qerrors.ClassificationSelector,
				fmt.Errorf("airesolve: element tag %q is not fillable", row.Tag))
		}
		if !editableTags[strings.ToLower(row.Tag)] && row.Role != "textbox" {
			return qerrors.Classify(qerrors.ClassificationSelector,
				fmt.Errorf("airesolve: resolved element is not editable (tag=%q role=%q)", row.Tag, row.Role))
		}
	case models.StepActionClick:
		if !clickableRoles[strings.ToLower(row.Role)] && strings.ToLower(row.Tag) != "button" && strings.ToLower(row.Tag) != "a" {
			return qerrors.Classify(qerrors.ClassificationSelector,
				fmt.Errorf("airesolve: resolved element is not clickable (tag=%q role=%q)", row.Tag, row.Role))
		}
	}
	return nil
}

// normalizeRole renders a role selector as the compact "role,accessibleName"
// form §4.9 specifies for storage.
func normalizeRole(row SnapshotRow) string {
	return row.Role + "," + row.Name
}
