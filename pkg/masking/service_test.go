package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskJSONRedactsSensitiveKeysRecursively(t *testing.T) {
	s := NewService()
	in := `{"base_url":"https://app.test","credentials":[{"username":"a","password":"hunter2"}],"api_token":"tok_123"}`

	out := s.MaskJSON(in)

	assert.Contains(t, out, `"base_url":"https://app.test"`)
	assert.Contains(t, out, `"password":"`+Redacted+`"`)
	assert.Contains(t, out, `"api_token":"`+Redacted+`"`)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "tok_123")
}

func TestMaskJSONReturnsOriginalOnParseFailure(t *testing.T) {
	s := NewService()
	assert.Equal(t, "not json", s.MaskJSON("not json"))
}

func TestMaskTextRedactsInlineAssignmentsAndBearerTokens(t *testing.T) {
	s := NewService()

	assert.Equal(t, "Authorization: Bearer "+Redacted,
		s.MaskText("Authorization: Bearer sk-abc123"))
	assert.Equal(t, "secret_key: "+Redacted,
		s.MaskText("secret_key: topsecret"))
}

func TestMaskValueRoundTripsThroughJSON(t *testing.T) {
	s := NewService()
	type env struct {
		BaseURL  string `json:"base_url"`
		Password string `json:"password"`
	}
	out := s.MaskValue(env{BaseURL: "https://app.test", Password: "hunter2"})
	m, ok := out.(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, Redacted, m["password"])
		assert.Equal(t, "https://app.test", m["base_url"])
	}
}
