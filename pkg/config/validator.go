package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateScheduler(); err != nil {
		return fmt.Errorf("scheduler validation failed: %w", err)
	}

	if err := v.validateAI(); err != nil {
		return fmt.Errorf("AI validation failed: %w", err)
	}

	if err := v.validateArtifactStore(); err != nil {
		return fmt.Errorf("artifact store validation failed: %w", err)
	}

	if err := v.validateRateLimit(); err != nil {
		return fmt.Errorf("rate limit validation failed: %w", err)
	}

	if err := v.validateFixtures(); err != nil {
		return fmt.Errorf("fixture validation failed: %w", err)
	}

	if err := v.validateBrowser(); err != nil {
		return fmt.Errorf("browser validation failed: %w", err)
	}

	if err := v.validateSecrets(); err != nil {
		return fmt.Errorf("secrets validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentExecutions < 1 {
		return fmt.Errorf("max_concurrent_executions must be at least 1, got %d", q.MaxConcurrentExecutions)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive, got %v", q.JobTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", q.OrphanDetectionInterval)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", q.OrphanThreshold)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", q.HeartbeatInterval)
	}
	if q.HeartbeatInterval >= q.OrphanThreshold {
		return fmt.Errorf("heartbeat_interval must be less than orphan_threshold to prevent false orphan detection, got heartbeat=%v threshold=%v", q.HeartbeatInterval, q.OrphanThreshold)
	}
	if q.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", q.MaxAttempts)
	}
	if q.RetentionPeriod <= 0 {
		return fmt.Errorf("retention_period must be positive, got %v", q.RetentionPeriod)
	}

	return nil
}

func (v *Validator) validateScheduler() error {
	s := v.cfg.Scheduler
	if s == nil {
		return fmt.Errorf("scheduler configuration is nil")
	}
	if s.IntervalMS < 1000 {
		return fmt.Errorf("interval_ms must be at least 1000, got %d", s.IntervalMS)
	}
	return nil
}

func (v *Validator) validateAI() error {
	ai := v.cfg.AI
	if ai == nil {
		return fmt.Errorf("AI configuration is nil")
	}
	if ai.Model == "" {
		return NewValidationError("ai", "", "model", fmt.Errorf("model required"))
	}
	if ai.APIKeyEnv != "" {
		if value := os.Getenv(ai.APIKeyEnv); value == "" {
			return NewValidationError("ai", "", "api_key_env", fmt.Errorf("environment variable %s is not set", ai.APIKeyEnv))
		}
	}
	if ai.MaxTokensPerRun < 1 {
		return NewValidationError("ai", "", "max_tokens_per_run", fmt.Errorf("must be at least 1"))
	}
	if ai.TestCaseMaxRetry < 0 {
		return NewValidationError("ai", "", "testcase_max_retry", fmt.Errorf("must be non-negative"))
	}
	if ai.RequestTimeout <= 0 {
		return NewValidationError("ai", "", "request_timeout", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateArtifactStore() error {
	as := v.cfg.ArtifactStore
	if as == nil {
		return fmt.Errorf("artifact store configuration is nil")
	}
	if as.Bucket == "" {
		return NewValidationError("artifact_store", "", "bucket", fmt.Errorf("bucket required"))
	}
	if as.AccessKeyEnv != "" {
		if value := os.Getenv(as.AccessKeyEnv); value == "" {
			return NewValidationError("artifact_store", "", "access_key_env", fmt.Errorf("environment variable %s is not set", as.AccessKeyEnv))
		}
	}
	if as.SecretKeyEnv != "" {
		if value := os.Getenv(as.SecretKeyEnv); value == "" {
			return NewValidationError("artifact_store", "", "secret_key_env", fmt.Errorf("environment variable %s is not set", as.SecretKeyEnv))
		}
	}
	return nil
}

func (v *Validator) validateRateLimit() error {
	rl := v.cfg.RateLimit
	if rl == nil {
		return fmt.Errorf("rate limit configuration is nil")
	}
	if rl.GlobalRatePerSecond <= 0 {
		return NewValidationError("rate_limit", "", "global_rate_per_second", fmt.Errorf("must be positive"))
	}
	if rl.Burst < 1 {
		return NewValidationError("rate_limit", "", "burst", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateFixtures() error {
	if v.cfg.Fixtures == nil {
		return nil
	}
	for entityType, entry := range v.cfg.Fixtures.Entities {
		if entry.FixtureAPI == "" {
			return NewValidationError("fixtures", entityType, "fixture_api", fmt.Errorf("required"))
		}
	}
	return nil
}

func (v *Validator) validateBrowser() error {
	b := v.cfg.Browser
	if b == nil {
		return fmt.Errorf("browser configuration is nil")
	}
	if b.ViewportWidth < 1 || b.ViewportHeight < 1 {
		return NewValidationError("browser", "", "viewport", fmt.Errorf("width and height must be positive"))
	}
	if b.NavigationTimeout <= 0 {
		return NewValidationError("browser", "", "navigation_timeout", fmt.Errorf("must be positive"))
	}
	if b.ActionTimeout <= 0 {
		return NewValidationError("browser", "", "action_timeout", fmt.Errorf("must be positive"))
	}
	if b.RetryLimit < 0 {
		return NewValidationError("browser", "", "retry_limit", fmt.Errorf("must be non-negative"))
	}
	return nil
}

func (v *Validator) validateSecrets() error {
	s := v.cfg.Secrets
	if s == nil {
		return fmt.Errorf("secrets configuration is nil")
	}
	if s.MasterKeyEnv == "" {
		return NewValidationError("secrets", "", "master_key_env", fmt.Errorf("required"))
	}
	if value := os.Getenv(s.MasterKeyEnv); value == "" {
		return NewValidationError("secrets", "", "master_key_env", fmt.Errorf("environment variable %s is not set", s.MasterKeyEnv))
	}
	return nil
}
