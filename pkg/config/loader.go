package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// QaflowYAMLConfig represents the complete qaflow.yaml file structure.
type QaflowYAMLConfig struct {
	Queue         *QueueConfig                   `yaml:"queue"`
	Scheduler     *SchedulerConfig               `yaml:"scheduler"`
	AI            *AIConfig                      `yaml:"ai"`
	ArtifactStore *ArtifactStoreConfig           `yaml:"artifact_store"`
	RateLimit     *RateLimitConfig               `yaml:"rate_limit"`
	Browser       *BrowserConfig                 `yaml:"browser"`
	Secrets       *SecretsConfig                 `yaml:"secrets"`
	Fixtures      map[string]FixtureEntityConfig `yaml:"fixtures"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load qaflow.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user-defined configuration over built-in defaults
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized successfully",
		"worker_count", stats.WorkerCount,
		"fixture_entries", stats.FixtureEntries,
		"ai_enabled", stats.AIEnabled)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	user, err := loader.loadQaflowYAML()
	if err != nil {
		return nil, NewLoadError("qaflow.yaml", err)
	}

	queueCfg := DefaultQueueConfig()
	if user.Queue != nil {
		if err := mergo.Merge(queueCfg, user.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	schedulerCfg := DefaultSchedulerConfig()
	if user.Scheduler != nil {
		if err := mergo.Merge(schedulerCfg, user.Scheduler, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scheduler config: %w", err)
		}
	}

	aiCfg := DefaultAIConfig()
	if user.AI != nil {
		if err := mergo.Merge(aiCfg, user.AI, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge AI config: %w", err)
		}
	}

	artifactCfg := DefaultArtifactStoreConfig()
	if user.ArtifactStore != nil {
		if err := mergo.Merge(artifactCfg, user.ArtifactStore, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge artifact store config: %w", err)
		}
	}

	rateLimitCfg := DefaultRateLimitConfig()
	if user.RateLimit != nil {
		if err := mergo.Merge(rateLimitCfg, user.RateLimit, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge rate limit config: %w", err)
		}
	}

	browserCfg := DefaultBrowserConfig()
	if user.Browser != nil {
		if err := mergo.Merge(browserCfg, user.Browser, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge browser config: %w", err)
		}
	}

	secretsCfg := DefaultSecretsConfig()
	if user.Secrets != nil {
		if err := mergo.Merge(secretsCfg, user.Secrets, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge secrets config: %w", err)
		}
	}

	fixturesCfg := DefaultFixtureConfig()
	fixturesCfg.Entities = mergeFixtureEntities(fixturesCfg.Entities, user.Fixtures)

	return &Config{
		configDir:     configDir,
		Queue:         queueCfg,
		Scheduler:     schedulerCfg,
		AI:            aiCfg,
		ArtifactStore: artifactCfg,
		RateLimit:     rateLimitCfg,
		Browser:       browserCfg,
		Secrets:       secretsCfg,
		Fixtures:      fixturesCfg,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables before parsing so secrets never live in
	// the checked-in YAML itself.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadQaflowYAML() (*QaflowYAMLConfig, error) {
	var cfg QaflowYAMLConfig
	cfg.Fixtures = make(map[string]FixtureEntityConfig)

	if err := l.loadYAML("qaflow.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
