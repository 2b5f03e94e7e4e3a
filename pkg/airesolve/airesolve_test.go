package airesolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qaflow/qaflow/pkg/models"
)

func TestBackingRowMatchesByID(t *testing.T) {
	snapshot := []SnapshotRow{{ID: "submit-btn", Tag: "button"}}
	row, ok := backingRow(snapshot, models.LocatorStrategyCSS, "#submit-btn")
	assert.True(t, ok)
	assert.Equal(t, "submit-btn", row.ID)
}

func TestBackingRowMatchesByRoleAndName(t *testing.T) {
	snapshot := []SnapshotRow{{Role: "button", Name: "Submit"}}
	row, ok := backingRow(snapshot, models.LocatorStrategyRole, "button,Submit")
	assert.True(t, ok)
	assert.Equal(t, "Submit", row.Name)
}

func TestBackingRowFailsWhenUnbacked(t *testing.T) {
	snapshot := []SnapshotRow{{ID: "other"}}
	_, ok := backingRow(snapshot, models.LocatorStrategyCSS, "#missing")
	assert.False(t, ok)
}

func TestValidateForActionRejectsNonEditableFill(t *testing.T) {
	err := validateForAction(models.StepActionFill, SnapshotRow{Tag: "button"})
	assert.Error(t, err)
}

func TestValidateForActionRejectsSubmitInputForFill(t *testing.T) {
	err := validateForAction(models.StepActionFill, SnapshotRow{Tag: "submit"})
	assert.Error(t, err)
}

func TestValidateForActionAcceptsEditableFill(t *testing.T) {
	err := validateForAction(models.StepActionFill, SnapshotRow{Tag: "input"})
	assert.NoError(t, err)
}

func TestValidateForActionAcceptsRoleTextboxFill(t *testing.T) {
	err := validateForAction(models.StepActionFill, SnapshotRow{Role: "textbox"})
	assert.NoError(t, err)
}

func TestValidateForActionRejectsNonClickable(t *testing.T) {
	err := validateForAction(models.StepActionClick, SnapshotRow{Tag: "div", Role: "presentation"})
	assert.Error(t, err)
}

func TestValidateForActionAcceptsClickableRole(t *testing.T) {
	err := validateForAction(models.StepActionClick, SnapshotRow{Role: "button"})
	assert.NoError(t, err)
}

func TestNormalizeRoleProducesCompactForm(t *testing.T) {
	assert.Equal(t, "button,Submit", normalizeRole(SnapshotRow{Role: "button", Name: "Submit"}))
}
