package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Queue:         DefaultQueueConfig(),
		Scheduler:     DefaultSchedulerConfig(),
		AI:            &AIConfig{Model: "gpt-4o-mini", MaxTokensPerRun: 1000, RequestTimeout: 1},
		ArtifactStore: &ArtifactStoreConfig{Bucket: "qaflow-artifacts"},
		RateLimit:     DefaultRateLimitConfig(),
		Browser:       DefaultBrowserConfig(),
		Secrets:       &SecretsConfig{MasterKeyEnv: "QAFLOW_TEST_MASTER_KEY"},
		Fixtures:      DefaultFixtureConfig(),
	}
}

func TestValidateAllAcceptsValidConfig(t *testing.T) {
	t.Setenv("QAFLOW_TEST_MASTER_KEY", "0123456789abcdef0123456789abcdef")

	cfg := validConfig()
	cfg.Secrets.MasterKeyEnv = "QAFLOW_TEST_MASTER_KEY"

	err := NewValidator(cfg).ValidateAll()
	assert.NoError(t, err)
}

func TestValidateQueueRejectsZeroWorkerCount(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.WorkerCount = 0

	err := NewValidator(cfg).validateQueue()
	assert.Error(t, err)
}

func TestValidateQueueRejectsJitterBiggerThanInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.PollIntervalJitter = cfg.Queue.PollInterval * 2

	err := NewValidator(cfg).validateQueue()
	assert.Error(t, err)
}

func TestValidateQueueRejectsHeartbeatAboveOrphanThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.HeartbeatInterval = cfg.Queue.OrphanThreshold + 1

	err := NewValidator(cfg).validateQueue()
	assert.Error(t, err)
}

func TestValidateArtifactStoreRequiresBucket(t *testing.T) {
	cfg := validConfig()
	cfg.ArtifactStore.Bucket = ""

	err := NewValidator(cfg).validateArtifactStore()
	assert.Error(t, err)
}

func TestValidateSecretsRequiresMasterKeyEnvSet(t *testing.T) {
	cfg := validConfig()
	cfg.Secrets.MasterKeyEnv = "QAFLOW_UNSET_MASTER_KEY"

	err := NewValidator(cfg).validateSecrets()
	assert.Error(t, err)
}

func TestValidateFixturesRequiresFixtureAPI(t *testing.T) {
	cfg := validConfig()
	cfg.Fixtures.Entities = map[string]FixtureEntityConfig{
		"ORDER": {FixtureAPI: ""},
	}

	err := NewValidator(cfg).validateFixtures()
	assert.Error(t, err)
}
