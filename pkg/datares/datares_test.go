package datares

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateReplacesDottedPlaceholder(t *testing.T) {
	resolved := &Resolved{ByAlias: map[string]any{
		"user": map[string]any{"email": "a@b.com"},
	}}

	out, err := Interpolate("Enter {{user.email}} in Email", resolved, 1)
	require.NoError(t, err)
	assert.Equal(t, "Enter a@b.com in Email", out)
}

func TestInterpolateFailsOnUnknownAlias(t *testing.T) {
	resolved := &Resolved{ByAlias: map[string]any{}}
	_, err := Interpolate("Enter {{user.email}}", resolved, 2)
	assert.EqualError(t, err, "Placeholder resolution failed for step 2")
}

func TestInterpolateFailsOnUnknownPath(t *testing.T) {
	resolved := &Resolved{ByAlias: map[string]any{"user": map[string]any{"email": "a@b.com"}}}
	_, err := Interpolate("{{user.phone}}", resolved, 3)
	assert.Error(t, err)
}

func TestHasPlaceholderDetectsGrammar(t *testing.T) {
	assert.True(t, HasPlaceholder("Enter {{user.email}}"))
	assert.False(t, HasPlaceholder("Enter a value"))
}

func TestFlattenProducesAliasFieldKeys(t *testing.T) {
	out := map[string]string{}
	flatten("user", map[string]any{"email": "a@b.com", "profile": map[string]any{"name": "Ada"}}, out)

	assert.Equal(t, "a@b.com", out["USER_EMAIL"])
	assert.Equal(t, "Ada", out["USER_PROFILE_NAME"])
}
