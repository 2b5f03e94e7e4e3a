// Package selvalidate implements the selector validation safeguard (§4.13)
// shared by selector preparation (C7, rejecting a stale cached selector) and
// selector knowledge write-back (C2, refusing to persist an unsafe one).
package selvalidate

import (
	"regexp"
	"strings"

	"github.com/qaflow/qaflow/pkg/models"
)

var bodyTailRe = regexp.MustCompile(`(^|[\s:])body$`)

// IsBodySelector reports whether selector resolves to the document body in
// any of its string forms: "css:body", "body", "css: body", or any
// "... body" tail (§4.13).
func IsBodySelector(selector string) bool {
	normalized := strings.ToLower(strings.TrimSpace(selector))
	return bodyTailRe.MatchString(normalized)
}

var submitLikeInputRe = regexp.MustCompile(`input\[\s*type\s*=\s*['"]?(submit|button|image)['"]?\s*\]`)
var editableSelectorRe = regexp.MustCompile(`(^|[\[\s])(input|textarea|contenteditable)([\[\s]|$)`)
var typedTextInputRe = regexp.MustCompile(`input\[\s*type\s*=\s*['"]?(text|email|password|number|search)['"]?\s*\]`)
var roleTextboxRe = regexp.MustCompile(`\[?role\s*=\s*['"]?textbox['"]?\]?`)

var clickableRoleRe = regexp.MustCompile(`\[?role\s*=\s*['"]?(button|link|menuitem|checkbox|radio)['"]?\]?`)
var clickableTagRe = regexp.MustCompile(`(^|[\s>])(button|a)([.\[#\s]|$)`)
var clickableTypeRe = regexp.MustCompile(`\[\s*type\s*=\s*['"]?(submit|button)['"]?\s*\]`)

// Valid reports whether selector is safe to persist (or trust from cache)
// for action, per §4.13's per-action rule set.
func Valid(action models.StepAction, selector string) bool {
	normalized := strings.ToLower(strings.TrimSpace(selector))

	switch action {
	case models.StepActionFill:
		if IsBodySelector(selector) {
			return false
		}
		if submitLikeInputRe.MatchString(normalized) {
			return false
		}
		return editableSelectorRe.MatchString(normalized) ||
			roleTextboxRe.MatchString(normalized) ||
			typedTextInputRe.MatchString(normalized)
	case models.StepActionClick:
		return clickableRoleRe.MatchString(normalized) ||
			clickableTagRe.MatchString(normalized) ||
			clickableTypeRe.MatchString(normalized)
	default:
		return true
	}
}
