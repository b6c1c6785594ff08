// Package commands implements the mixsense CLI subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mixsense-labs/mixsense/internal/cli/config"
	"github.com/mixsense-labs/mixsense/internal/cli/output"
	"github.com/mixsense-labs/mixsense/internal/engine"
	"github.com/mixsense-labs/mixsense/internal/features"
	"github.com/mixsense-labs/mixsense/internal/prep"
	"github.com/mixsense-labs/mixsense/internal/pyenv"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need database access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	window, _ := strconv.Atoi(getEnvOrDefault("MIXSENSE_PIPELINE_WINDOW", ""))
	if window <= 0 {
		window = config.DefaultWindow
	}

	return &config.Config{
		DataDir:      getEnvOrDefault("MIXSENSE_DATA_DIR", config.DefaultDataDir),
		ProcessedDir: getEnvOrDefault("MIXSENSE_PROCESSED_DIR", config.DefaultProcessedDir),
		DatabasePath: os.Getenv("MIXSENSE_DATABASE"),
		StatePath:    getEnvOrDefault("MIXSENSE_STATE_PATH", config.DefaultStateFile),
		Environment:  getEnvOrDefault("MIXSENSE_ENVIRONMENT", config.DefaultEnv),
		Python:       getEnvOrDefault("MIXSENSE_PYTHON", config.DefaultPython),
		VenvDir:      getEnvOrDefault("MIXSENSE_VENV_DIR", config.DefaultVenvDir),
		Requirements: getEnvOrDefault("MIXSENSE_REQUIREMENTS", config.DefaultRequirements),
		Verbose:      os.Getenv("MIXSENSE_VERBOSE") == "true",
		OutputFormat: os.Getenv("MIXSENSE_OUTPUT"),
		Pipeline: config.PipelineConfig{
			Window:  window,
			Workers: config.DefaultWorkers,
		},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, err
		}
	}

	featureOpts := features.DefaultOptions()
	featureOpts.Window = cfg.Pipeline.Window
	featureOpts.Spectral = cfg.Pipeline.Frequency

	engineCfg := engine.Config{
		DataDir:      cfg.DataDir,
		ProcessedDir: cfg.ProcessedDir,
		DatabasePath: cfg.DatabasePath,
		StatePath:    cfg.StatePath,
		Environment:  cfg.Environment,
		Workers:      cfg.Pipeline.Workers,
		Prep:         prep.DefaultOptions(),
		Features:     featureOpts,
		Logger:       logger,
	}

	return engine.New(engineCfg)
}

// newPyenvManager builds the virtual environment manager from config.
func newPyenvManager(cfg *config.Config, logger *slog.Logger) *pyenv.Manager {
	venvDir := cfg.VenvDir
	if !filepath.IsAbs(venvDir) && cfg.ProjectRoot != "" {
		venvDir = filepath.Join(cfg.ProjectRoot, venvDir)
	}
	requirements := cfg.Requirements
	if !filepath.IsAbs(requirements) && cfg.ProjectRoot != "" {
		requirements = filepath.Join(cfg.ProjectRoot, requirements)
	}
	return pyenv.New(cfg.Python, venvDir, requirements, logger)
}
