package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlagSet mirrors the root command's persistent flags.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data-dir", "", "")
	fs.String("processed-dir", "", "")
	fs.String("database", "", "")
	fs.String("state", "", "")
	fs.String("env", "", "")
	fs.String("python", "", "")
	fs.String("venv-dir", "", "")
	fs.String("requirements", "", "")
	fs.Int("window", 0, "")
	fs.Int("workers", 0, "")
	fs.Bool("frequency", false, "")
	fs.Bool("verbose", false, "")
	fs.String("output", "", "")
	return fs
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, DefaultDataDir), cfg.DataDir)
	assert.Equal(t, filepath.Join(tmpDir, DefaultProcessedDir), cfg.ProcessedDir)
	assert.Equal(t, filepath.Join(tmpDir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.Equal(t, DefaultPython, cfg.Python)
	assert.Equal(t, DefaultWindow, cfg.Pipeline.Window)
	assert.Equal(t, DefaultWorkers, cfg.Pipeline.Workers)
	assert.False(t, cfg.Pipeline.Frequency)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfigFromFile(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	configContent := `data_dir: recordings
environment: prod
pipeline:
  window: 50
  frequency: true
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "mixsense.yaml"), []byte(configContent), 0600))

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "recordings"), cfg.DataDir)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, 50, cfg.Pipeline.Window)
	assert.True(t, cfg.Pipeline.Frequency)
	assert.NotEmpty(t, GetConfigFileUsed())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "mixsense.yaml"),
		[]byte("environment: prod\n"), 0600))
	t.Setenv("MIXSENSE_ENVIRONMENT", "staging")

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	t.Setenv("MIXSENSE_ENVIRONMENT", "staging")

	fs := newFlagSet()
	require.NoError(t, fs.Set("env", "prod"))
	require.NoError(t, fs.Set("window", "7"))
	require.NoError(t, fs.Set("workers", "2"))
	require.NoError(t, fs.Set("frequency", "true"))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, 7, cfg.Pipeline.Window, "--window maps to pipeline.window")
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.Frequency)
}

func TestLoadConfigStateFlagMapsToStatePath(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	fs := newFlagSet()
	statePath := filepath.Join(tmpDir, "custom", "state.db")
	require.NoError(t, fs.Set("state", statePath))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, statePath, cfg.StatePath)
}

func TestLoadConfigProjectRootFromConfigDir(t *testing.T) {
	ResetConfig()
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "mixsense.yaml"),
		[]byte("data_dir: data\n"), 0600))

	// Run from a nested directory; the root is found by searching upward.
	nested := filepath.Join(rootDir, "notebooks", "deep")
	require.NoError(t, os.MkdirAll(nested, 0750))
	chdir(t, nested)

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)

	assert.Equal(t, rootDir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(rootDir, "data"), cfg.DataDir)
}

func TestLoadConfigExplicitConfigFile(t *testing.T) {
	ResetConfig()
	projDir := t.TempDir()
	cfgPath := filepath.Join(projDir, "mixsense.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("environment: prod\n"), 0600))

	chdir(t, t.TempDir())

	cfg, err := LoadConfig(cfgPath, newFlagSet())
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, projDir, cfg.ProjectRoot, "explicit config file sets the project root")
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	configContent := `environment: prod
database: dev.duckdb
environments:
  prod:
    database: prod.duckdb
    data_dir: prod_data
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "mixsense.yaml"), []byte(configContent), 0600))

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "prod.duckdb"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(tmpDir, "prod_data"), cfg.DataDir)
}

func TestLoadConfigBadYAML(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "mixsense.yaml"),
		[]byte("data_dir: [unclosed\n"), 0600))

	_, err := LoadConfig("", newFlagSet())
	assert.Error(t, err)
}

func TestGetCurrentConfig(t *testing.T) {
	ResetConfig()
	assert.Nil(t, GetCurrentConfig())

	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	cfg, err := LoadConfig("", newFlagSet())
	require.NoError(t, err)
	assert.Same(t, cfg, GetCurrentConfig())
}
