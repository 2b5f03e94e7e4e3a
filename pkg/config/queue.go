package config

import "time"

// QueueConfig contains queue and worker pool configuration shared by every
// worker role (scheduler tick, run creator, run orchestrator, execution).
// Each worker role reads the subset it needs; MaxConcurrentExecutions is
// read only by the run orchestrator.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentExecutions is the run orchestrator's max_parallel_execution
	// bound: one dispatch pass sends at most min(schedule concurrency limit,
	// MaxConcurrentExecutions, queued) Executions of a TestRun. It is not
	// checked against the number of RUNNING Executions across TestRuns.
	MaxConcurrentExecutions int `yaml:"max_concurrent_executions"`

	// PollInterval is the base interval for checking pending jobs.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// JobTimeout is passed to every job pool as the delay before a failed
	// job becomes claimable again (jobqueue.PoolConfig.RetryBackoff). No
	// limit on how long a single job may be processed is enforced.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active jobs to
	// complete during shutdown. Should match JobTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for orphaned executions.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long an execution can go without a heartbeat
	// before it is considered orphaned.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`

	// HeartbeatInterval is how often a running execution updates
	// last_heartbeat_at.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// MaxAttempts bounds retries for a failed job before it is parked
	// (§9 at-least-once delivery with retry/backoff).
	MaxAttempts int `yaml:"max_attempts"`

	// RetentionPeriod is how long completed job rows are kept before
	// cleanup.
	RetentionPeriod time.Duration `yaml:"retention_period"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentExecutions: 5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              15 * time.Minute,
		GracefulShutdownTimeout: 15 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
		HeartbeatInterval:       30 * time.Second,
		MaxAttempts:             3,
		RetentionPeriod:         7 * 24 * time.Hour,
	}
}
