package config

import "time"

// FixtureEntityConfig describes how the data orchestrator (C4) talks to the
// fixture/check HTTP API for one entity type (§4.6, §6).
type FixtureEntityConfig struct {
	FixtureAPI string `yaml:"fixture_api" validate:"required"`
	CheckAPI   string `yaml:"check_api,omitempty"` // defaults to FixtureAPI when empty
	IDField    string `yaml:"id_field,omitempty"`  // defaults to "id"
}

// FixtureConfig maps entity type (UPPER, matches DataRequirementItem.Type)
// to its fixture API configuration.
type FixtureConfig struct {
	Entities map[string]FixtureEntityConfig `yaml:"entities"`
}

// AIConfig holds the chat-completion AI endpoint configuration consumed by
// the AI selector resolver (C6) and the AI_TESTCASE_GENERATION collaborator.
type AIConfig struct {
	APIKeyEnv            string        `yaml:"api_key_env"`
	Model                string        `yaml:"model"`
	SystemPrompt         string        `yaml:"system_prompt"`
	UserPromptTemplate   string        `yaml:"user_prompt_template"`
	MaxTokensPerRun      int           `yaml:"max_tokens_per_run"`
	TestCaseMaxRetry     int           `yaml:"testcase_max_retry"`
	QueueEnabled         bool          `yaml:"queue_enabled"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
}

// ArtifactStoreConfig holds the S3-compatible object store configuration
// consumed by the artifact store (C1).
type ArtifactStoreConfig struct {
	Bucket          string `yaml:"bucket" validate:"required"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint,omitempty"` // non-empty for S3-compatible (MinIO, etc.)
	AccessKeyEnv    string `yaml:"access_key_env"`
	SecretKeyEnv    string `yaml:"secret_key_env"`
	PublicURLBase   string `yaml:"public_url_base,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty"`
}

// RateLimitConfig bounds outbound calls to the AI endpoint and fixture API.
type RateLimitConfig struct {
	GlobalRatePerSecond float64 `yaml:"global_rate_per_second"`
	Burst               int     `yaml:"burst"`
}

// SchedulerConfig controls the tick worker (C10).
type SchedulerConfig struct {
	IntervalMS int `yaml:"interval_ms"`
}

// BrowserConfig controls the browser runner (C8).
type BrowserConfig struct {
	ViewportWidth       int           `yaml:"viewport_width"`
	ViewportHeight      int           `yaml:"viewport_height"`
	NavigationTimeout   time.Duration `yaml:"navigation_timeout"`
	ActionTimeout       time.Duration `yaml:"action_timeout"`
	NetworkIdleTimeout  time.Duration `yaml:"network_idle_timeout"`
	StabilizationBudget time.Duration `yaml:"stabilization_budget"`
	MaxSnapshotElements int           `yaml:"max_snapshot_elements"`
	RetryLimit          int           `yaml:"retry_limit"`
}

// SecretsConfig configures the symmetric key used to decrypt Environment
// credentials at dispatch time (§9).
type SecretsConfig struct {
	MasterKeyEnv string `yaml:"master_key_env"`
}
