// Package assertion maps a TestCase's free-text expected result to a typed
// Assertion via an ordered rule table (C5, §4.12). It is a pure function:
// no I/O, no state.
package assertion

import "strings"

// Kind mirrors models.AssertionType without importing pkg/models, keeping
// this package a leaf the rest of the pipeline can depend on freely.
type Kind string

const (
	KindElementVisible    Kind = "element_visible"
	KindElementNotVisible Kind = "element_not_visible"
	KindElementNotExists  Kind = "element_not_exists"
	KindURLContains       Kind = "url_contains"
	KindTextContains      Kind = "text_contains"
	KindStatusCode        Kind = "status_code"
	KindTextMasked        Kind = "text_masked"
)

// Mapped is the result of mapping an expected-result string.
type Mapped struct {
	Type  Kind
	Value string // comparison value for kinds that need one; empty otherwise
}

// Map applies the ordered rule table in §4.12 to the lowercased
// expectedResult and returns the resulting assertion. The caller attaches
// the returned assertion to the last step of a plan.
func Map(expectedResult string) Mapped {
	lower := strings.ToLower(expectedResult)

	switch {
	case strings.Contains(lower, "visible") && !strings.Contains(lower, "not visible"):
		return Mapped{Type: KindElementVisible}
	case strings.Contains(lower, "not visible"):
		return Mapped{Type: KindElementNotVisible}
	case strings.Contains(lower, "redirect"):
		return Mapped{Type: KindURLContains, Value: expectedResult}
	case strings.Contains(lower, "status 200"):
		return Mapped{Type: KindStatusCode, Value: "200"}
	case strings.Contains(lower, "masked"):
		return Mapped{Type: KindTextMasked}
	case strings.Contains(lower, "not returned") || strings.Contains(lower, "no result"):
		return Mapped{Type: KindElementNotExists}
	case strings.Contains(lower, "contains"):
		return Mapped{Type: KindTextContains, Value: expectedResult}
	default:
		return Mapped{Type: KindElementVisible}
	}
}
