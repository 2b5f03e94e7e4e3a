package browser

import (
	"errors"
	"strings"
)

// ErrInvalidNavigationTarget is raised when a navigate step's target is not
// an absolute URL (§4.8's per-action dispatch table).
var ErrInvalidNavigationTarget = errors.New("browser: navigate target is not an absolute URL")

var selectorErrorKeywords = []string{
	"timeout", "not found", "strict mode", "locator", "waiting for selector", "no element",
}

// isSelectorRelated reports whether err's message matches §4.8's keyword
// set for the runtime selector fallback loop's trigger condition.
func isSelectorRelated(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, kw := range selectorErrorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
