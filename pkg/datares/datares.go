// Package datares resolves a TestCase's data_requirement against stored
// DataKnowledge rows and interpolates the {{alias.path}} placeholder
// grammar against the resolved values (C3, §4.5).
package datares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/qerrors"
	"github.com/qaflow/qaflow/pkg/store"
)

// UnresolvedAliasError identifies the data_requirement alias that had no
// matching DataKnowledge row.
type UnresolvedAliasError struct {
	Alias string
}

func (e *UnresolvedAliasError) Error() string {
	return fmt.Sprintf("data requirement alias %q could not be resolved against stored data knowledge", e.Alias)
}

// Resolved holds the outcome of resolving a TestCase's data_requirement:
// byAlias is the parsed JSON value per alias, used by Interpolate to walk
// dotted paths; Flattened is the {ALIAS_FIELD: string} projection §4.5
// describes for execution metadata and readable logging.
type Resolved struct {
	ByAlias   map[string]any
	Flattened map[string]string
}

// Resolve resolves every item in reqs against DataKnowledgeStore, selecting
// per item the row matching (projectID, type, scenario, role) with the
// deterministic most-recently-updated tiebreak the store applies. A missing
// alias is a DATA_PREPARATION-classified error identifying it (§7).
func Resolve(ctx context.Context, dks *store.DataKnowledgeStore, projectID string, reqs []models.DataRequirementItem) (*Resolved, error) {
	out := &Resolved{ByAlias: map[string]any{}, Flattened: map[string]string{}}

	for _, req := range reqs {
		dk, err := dks.Find(ctx, projectID, req.Type, req.Scenario, req.Role)
		if err != nil {
			if errors.Is(err, qerrors.ErrNotFound) {
				return nil, qerrors.Classify(qerrors.ClassificationDataPreparation, &UnresolvedAliasError{Alias: req.Alias})
			}
			return nil, fmt.Errorf("datares: resolve alias %q: %w", req.Alias, err)
		}

		var v any
		if err := json.Unmarshal(dk.Value, &v); err != nil {
			return nil, fmt.Errorf("datares: unmarshal value for alias %q: %w", req.Alias, err)
		}
		out.ByAlias[req.Alias] = v
		flatten(req.Alias, v, out.Flattened)
	}

	return out, nil
}

func flatten(alias string, v any, out map[string]string) {
	prefix := strings.ToUpper(alias)
	var walk func(path string, v any)
	walk = func(path string, v any) {
		switch t := v.(type) {
		case map[string]any:
			for k, val := range t {
				walk(path+"_"+strings.ToUpper(k), val)
			}
		case []any:
			// Arrays have no stable flattened key; skip rather than guess.
		case string:
			out[path] = t
		case nil:
			out[path] = ""
		default:
			out[path] = fmt.Sprint(t)
		}
	}
	walk(prefix, v)
}

// placeholderRe matches {{alias.path.to.field}}: an alias token followed by
// one or more dotted path segments.
var placeholderRe = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)((?:\.[a-zA-Z0-9_]+)+)\}\}`)

// Interpolate replaces every {{alias.path}} placeholder in text against
// resolved.ByAlias. stepIndex is used only to build the error message
// §4.5 specifies verbatim: "Placeholder resolution failed for step N".
func Interpolate(text string, resolved *Resolved, stepIndex int) (string, error) {
	var firstErr error
	result := placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		if firstErr != nil {
			return match
		}
		sub := placeholderRe.FindStringSubmatch(match)
		alias, path := sub[1], strings.Split(strings.TrimPrefix(sub[2], "."), ".")

		root, ok := resolved.ByAlias[alias]
		if !ok {
			firstErr = fmt.Errorf("Placeholder resolution failed for step %d", stepIndex)
			return match
		}
		val, ok := navigate(root, path)
		if !ok {
			firstErr = fmt.Errorf("Placeholder resolution failed for step %d", stepIndex)
			return match
		}
		return stringify(val)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func navigate(v any, path []string) (any, bool) {
	cur := v
	for _, field := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[field]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// HasPlaceholder reports whether text contains the {{alias.path}} grammar,
// used by pre-execution (§4.7 step 6) to decide whether a fill step's
// original text must be lifted into assertion.value.
func HasPlaceholder(text string) bool {
	return placeholderRe.MatchString(text)
}
