package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, contents string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "qaflow.yaml"), []byte(contents), 0o644)
	require.NoError(t, err)
}

func TestInitializeAppliesDefaultsWhenFileOmitsSections(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QAFLOW_AI_API_KEY", "test-key")
	t.Setenv("QAFLOW_ARTIFACT_ACCESS_KEY", "test-access")
	t.Setenv("QAFLOW_ARTIFACT_SECRET_KEY", "test-secret")
	t.Setenv("QAFLOW_MASTER_KEY", "0123456789abcdef0123456789abcdef")

	writeConfigFile(t, dir, `
artifact_store:
  bucket: qaflow-artifacts
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Queue.WorkerCount)
	assert.Equal(t, "qaflow-artifacts", cfg.ArtifactStore.Bucket)
	assert.Equal(t, "us-east-1", cfg.ArtifactStore.Region)
}

func TestInitializeMergesUserOverridesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QAFLOW_AI_API_KEY", "test-key")
	t.Setenv("QAFLOW_ARTIFACT_ACCESS_KEY", "test-access")
	t.Setenv("QAFLOW_ARTIFACT_SECRET_KEY", "test-secret")
	t.Setenv("QAFLOW_MASTER_KEY", "0123456789abcdef0123456789abcdef")

	writeConfigFile(t, dir, `
queue:
  worker_count: 12
artifact_store:
  bucket: qaflow-artifacts
  region: eu-west-1
fixtures:
  ORDER:
    fixture_api: https://fixtures.internal/orders
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Queue.WorkerCount)
	assert.Equal(t, "eu-west-1", cfg.ArtifactStore.Region)

	fixture, ok := cfg.FixtureFor("ORDER")
	require.True(t, ok)
	assert.Equal(t, "https://fixtures.internal/orders", fixture.FixtureAPI)
	assert.Equal(t, "https://fixtures.internal/orders", fixture.CheckAPI)
	assert.Equal(t, "id", fixture.IDField)
}

func TestInitializeFailsOnMissingConfigFile(t *testing.T) {
	dir := t.TempDir()

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitializeFailsValidationWhenBucketMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QAFLOW_MASTER_KEY", "0123456789abcdef0123456789abcdef")
	writeConfigFile(t, dir, "queue:\n  worker_count: 3\n")

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}
