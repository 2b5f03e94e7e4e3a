package selvalidate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qaflow/qaflow/pkg/models"
)

func TestIsBodySelectorMatchesAllStringForms(t *testing.T) {
	for _, s := range []string{"css:body", "body", "css: body", "div > body", "BODY"} {
		assert.True(t, IsBodySelector(s), s)
	}
	assert.False(t, IsBodySelector("#login-form input"))
}

func TestValidRejectsBodySelectorForFill(t *testing.T) {
	assert.False(t, Valid(models.StepActionFill, "css:body"))
}

func TestValidRejectsSubmitButtonInputForFill(t *testing.T) {
	assert.False(t, Valid(models.StepActionFill, "input[type=submit]"))
}

func TestValidAcceptsEditableInputForFill(t *testing.T) {
	assert.True(t, Valid(models.StepActionFill, "#email input"))
	assert.True(t, Valid(models.StepActionFill, "input[type=email]"))
	assert.True(t, Valid(models.StepActionFill, "[role=textbox]"))
}

func TestValidRejectsNonEditableForFill(t *testing.T) {
	assert.False(t, Valid(models.StepActionFill, "#submit-button"))
}

func TestValidAcceptsClickableSelectorsForClick(t *testing.T) {
	assert.True(t, Valid(models.StepActionClick, "button.primary"))
	assert.True(t, Valid(models.StepActionClick, "a.nav-link"))
	assert.True(t, Valid(models.StepActionClick, "[role=button]"))
	assert.True(t, Valid(models.StepActionClick, "[type=submit]"))
}

func TestValidRejectsNonClickableForClick(t *testing.T) {
	assert.False(t, Valid(models.StepActionClick, "div.banner"))
}

func TestValidAllowsAnySelectorForOtherActions(t *testing.T) {
	assert.True(t, Valid(models.StepActionNavigate, "div.banner"))
}
