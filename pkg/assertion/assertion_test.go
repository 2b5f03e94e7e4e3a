package assertion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapOrdersRulesCorrectly(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantKind Kind
	}{
		{"visible", "The welcome banner is visible", KindElementVisible},
		{"not visible", "The error banner is not visible", KindElementNotVisible},
		{"redirect", "User is redirected to the dashboard", KindURLContains},
		{"status 200", "Response returns status 200", KindStatusCode},
		{"masked", "The password field is masked", KindTextMasked},
		{"not returned", "The deleted record is not returned", KindElementNotExists},
		{"no result", "Search yields no result", KindElementNotExists},
		{"contains", "Page contains the order summary", KindTextContains},
		{"default", "Something happens", KindElementVisible},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Map(tc.input)
			assert.Equal(t, tc.wantKind, got.Type)
		})
	}
}

func TestMapVisiblePrecedesNotVisibleCheck(t *testing.T) {
	got := Map("Confirm the banner is not visible")
	assert.Equal(t, KindElementNotVisible, got.Type)
}

func TestMapStatusCodeCarriesValue(t *testing.T) {
	got := Map("API returns status 200")
	assert.Equal(t, "200", got.Value)
}
