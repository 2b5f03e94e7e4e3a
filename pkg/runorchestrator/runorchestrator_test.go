package runorchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qaflow/qaflow/pkg/models"
)

func TestMinIntPicksSmaller(t *testing.T) {
	assert.Equal(t, 3, minInt(3, 10))
	assert.Equal(t, 3, minInt(10, 3))
	assert.Equal(t, 0, minInt(0, 5))
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, nil, nil, 0, 0)
	assert.Equal(t, 10, svc.maxParallel)
	assert.Equal(t, 3, svc.maxAttempts)
}

func TestNewServiceHonorsPositiveOverrides(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, nil, nil, 5, 2)
	assert.Equal(t, 5, svc.maxParallel)
	assert.Equal(t, 2, svc.maxAttempts)
}

func TestExecutionStatusIsTerminalDrivesFinalizeEligibility(t *testing.T) {
	assert.True(t, models.ExecutionStatusPassed.IsTerminal())
	assert.True(t, models.ExecutionStatusFailed.IsTerminal())
	assert.False(t, models.ExecutionStatusRunning.IsTerminal())
	assert.False(t, models.ExecutionStatusQueued.IsTerminal())
}
