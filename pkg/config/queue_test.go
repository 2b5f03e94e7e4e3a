package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultQueueConfig(t *testing.T) {
	cfg := DefaultQueueConfig()

	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 5, cfg.MaxConcurrentExecutions)
	assert.Equal(t, 1*time.Second, cfg.PollInterval)
	assert.Less(t, cfg.PollIntervalJitter, cfg.PollInterval)
	assert.Less(t, cfg.HeartbeatInterval, cfg.OrphanThreshold)
	assert.Greater(t, cfg.MaxAttempts, 0)
}
