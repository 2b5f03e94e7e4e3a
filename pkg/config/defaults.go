package config

import "time"

// DefaultSchedulerConfig returns the built-in scheduler tick defaults.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{IntervalMS: 30000}
}

// DefaultAIConfig returns the built-in AI resolver defaults.
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKeyEnv:        "QAFLOW_AI_API_KEY",
		Model:            "gpt-4o-mini",
		MaxTokensPerRun:  20000,
		TestCaseMaxRetry: 2,
		QueueEnabled:     true,
		RequestTimeout:   30 * time.Second,
	}
}

// DefaultArtifactStoreConfig returns the built-in artifact store defaults.
func DefaultArtifactStoreConfig() *ArtifactStoreConfig {
	return &ArtifactStoreConfig{
		Region:         "us-east-1",
		AccessKeyEnv:   "QAFLOW_ARTIFACT_ACCESS_KEY",
		SecretKeyEnv:   "QAFLOW_ARTIFACT_SECRET_KEY",
		ForcePathStyle: false,
	}
}

// DefaultRateLimitConfig returns the built-in outbound rate limit defaults.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		GlobalRatePerSecond: 5,
		Burst:               10,
	}
}

// DefaultBrowserConfig returns the built-in browser runner defaults.
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		ViewportWidth:       1440,
		ViewportHeight:      900,
		NavigationTimeout:   30 * time.Second,
		ActionTimeout:       10 * time.Second,
		NetworkIdleTimeout:  2 * time.Second,
		StabilizationBudget: 5 * time.Second,
		MaxSnapshotElements: 500,
		RetryLimit:          1,
	}
}

// DefaultSecretsConfig returns the built-in secrets defaults.
func DefaultSecretsConfig() *SecretsConfig {
	return &SecretsConfig{MasterKeyEnv: "QAFLOW_MASTER_KEY"}
}

// DefaultFixtureConfig returns an empty fixture map; entities are added by
// user configuration since fixture endpoints are project-specific.
func DefaultFixtureConfig() *FixtureConfig {
	return &FixtureConfig{Entities: map[string]FixtureEntityConfig{}}
}
