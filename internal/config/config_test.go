package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeConfig writes the given document as testcontrol.yaml into dir.
func writeConfig(t *testing.T, dir string, doc map[string]any) {
	t.Helper()

	data, err := yaml.Marshal(doc)
	require.NoError(t, err, "failed to marshal config")

	err = os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644)
	require.NoError(t, err, "failed to write config file")
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "unit-test", cfg.ProjectStage())
	assert.Empty(t, cfg.DefaultScopes())
	assert.True(t, cfg.StartExternalComponents())
	assert.Empty(t, cfg.LogHandler())
	assert.Empty(t, cfg.LogsDir())
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "unit-test", cfg.ProjectStage())
	assert.True(t, cfg.StartExternalComponents())
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, map[string]any{
		"project_stage":             "integration-test",
		"default_scopes":            []string{"request"},
		"start_external_components": false,
		"log_handler":               "junit-xml",
		"logs_dir":                  "/tmp/testcontrol-logs",
		"logging": map[string]any{
			"file_enabled": true,
			"max_size_mb":  10,
		},
	})

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "integration-test", cfg.ProjectStage())
	assert.Equal(t, []string{"request"}, cfg.DefaultScopes())
	assert.False(t, cfg.StartExternalComponents())
	assert.Equal(t, "junit-xml", cfg.LogHandler())
	assert.Equal(t, "/tmp/testcontrol-logs", cfg.LogsDir())

	lc := cfg.LoggingConfig()
	require.NotNil(t, lc.FileEnabled)
	assert.True(t, *lc.FileEnabled)
	assert.Equal(t, 10, lc.MaxSizeMB)
	assert.Equal(t, 7, lc.MaxAgeDays, "unset logging keys keep their defaults")
}

func TestLoadWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, map[string]any{"project_stage": "staging"})

	nested := filepath.Join(root, "services", "billing")
	require.NoError(t, os.MkdirAll(nested, 0755))

	cfg, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.ProjectStage())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("project_stage: [unclosed"), 0644)
	require.NoError(t, err)

	_, err = Load(dir)
	assert.Error(t, err)
}
