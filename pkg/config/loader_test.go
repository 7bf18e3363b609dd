package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, DefaultConfigFileName), []byte(content), 0o644)
	require.NoError(t, err)
}

func TestInitializeWithoutFileUsesBuiltinDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Validation.WordsPerPage)
	assert.Equal(t, dir, cfg.ConfigDir())
}

func TestInitializeMergesUserOverridesOverBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
validation:
  words_per_page: 400
cost_estimation:
  model_costs:
    gpt-4o:
      input_per_million: 1.23
      output_per_million: 4.56
`)

	cfg, err := Initialize(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Validation.WordsPerPage)
	assert.Equal(t, 30, cfg.Validation.TOCChaptersPerPage, "fields not set by the override keep their built-in value")
	assert.Equal(t, 1.23, cfg.CostEstimation.ModelCosts["gpt-4o"].InputPerMillion)
	_, stillPresent := cfg.CostEstimation.ModelCosts["default"]
	assert.True(t, stillPresent, "overriding one model cost must not drop the rest of the built-in table")
}

func TestInitializeExpandsEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NOVELFORGE_TEST_BUCKET", "my-bucket-from-env")
	writeYAML(t, dir, `
storage:
  gcs_enabled: true
  bucket_name: "${NOVELFORGE_TEST_BUCKET}"
`)

	cfg, err := Initialize(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, "my-bucket-from-env", cfg.Storage.BucketName)
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "validation: [this is not a mapping")

	_, err := Initialize(context.Background(), dir)

	require.Error(t, err)
}

func TestInitializeFailsValidationWhenNotifyEnabledWithoutChannel(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
notify:
  enabled: true
  token_env: SLACK_BOT_TOKEN
`)

	_, err := Initialize(context.Background(), dir)

	require.Error(t, err)
}
