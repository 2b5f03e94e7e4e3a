package config

import (
	"encoding/json"

	"github.com/qaflow/qaflow/pkg/masking"
)

var maskingService = masking.NewService()

// Config is the umbrella configuration object returned by Initialize and
// threaded through every collaborator package.
type Config struct {
	configDir string

	Queue         *QueueConfig
	Scheduler     *SchedulerConfig
	AI            *AIConfig
	ArtifactStore *ArtifactStoreConfig
	RateLimit     *RateLimitConfig
	Fixtures      *FixtureConfig
	Browser       *BrowserConfig
	Secrets       *SecretsConfig
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, logged once at
// startup.
type ConfigStats struct {
	WorkerCount    int
	FixtureEntries int
	AIEnabled      bool
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	fixtureEntries := 0
	if c.Fixtures != nil {
		fixtureEntries = len(c.Fixtures.Entities)
	}
	return ConfigStats{
		WorkerCount:    c.Queue.WorkerCount,
		FixtureEntries: fixtureEntries,
		AIEnabled:      c.AI != nil && c.AI.APIKeyEnv != "",
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// FixtureFor returns the fixture configuration for an entity type, and
// whether one was configured.
func (c *Config) FixtureFor(entityType string) (FixtureEntityConfig, bool) {
	if c.Fixtures == nil {
		return FixtureEntityConfig{}, false
	}
	entry, ok := c.Fixtures.Entities[entityType]
	return entry, ok
}

// Dump renders the configuration as JSON and passes it through the masking
// service, which replaces the value of any key in its sensitive-key set with
// masking.Redacted. The configuration holds only the names of the
// environment variables that carry secrets (APIKeyEnv, AccessKeyEnv,
// SecretKeyEnv, MasterKeyEnv), not the secret values; those names are not in
// the sensitive-key set and are written unchanged.
func (c *Config) Dump() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "<config dump failed: " + err.Error() + ">"
	}
	out, err := json.Marshal(maskingService.MaskValue(json.RawMessage(data)))
	if err != nil {
		return "<config mask failed: " + err.Error() + ">"
	}
	return string(out)
}
