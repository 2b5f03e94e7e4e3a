package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRunAtAdvancesPastFrom(t *testing.T) {
	from := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	next, err := NextRunAt("*/15 * * * *", from)
	require.NoError(t, err)

	assert.True(t, next.After(from))
	assert.Equal(t, 15, next.Minute())
}

func TestNextRunAtRejectsInvalidExpression(t *testing.T) {
	_, err := NextRunAt("not a cron expression", time.Now())
	assert.Error(t, err)
}

func TestValidateAcceptsStandardFiveFieldExpressions(t *testing.T) {
	assert.NoError(t, Validate("0 * * * *"))
	assert.Error(t, Validate("invalid"))
}
